package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"parse error", &ParseError{Reason: "hourly series empty"}, false},
		{"wrapped parse error", fmt.Errorf("fetch: %w", &ParseError{Reason: "bad json"}), false},
		{"server error", &UpstreamError{StatusCode: 503}, true},
		{"client error", &UpstreamError{StatusCode: 404}, false},
		{"rate limited", &UpstreamError{StatusCode: 429}, false},
		{"network timeout", timeoutErr{}, true},
		{"cancellation", context.Canceled, false},
		{"wrapped cancellation", fmt.Errorf("request: %w", context.Canceled), false},
		{"generic transport error", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	degen := &DegenerateInputError{Lat: 89.95, Reason: "cos(latitude) too small for east/west offset"}
	assert.Contains(t, degen.Error(), "89.95")

	parse := &ParseError{Reason: "malformed JSON", Err: errors.New("unexpected EOF")}
	assert.Contains(t, parse.Error(), "malformed JSON")
	assert.ErrorContains(t, parse, "unexpected EOF")

	upstream := &UpstreamError{StatusCode: 500, Body: "internal"}
	assert.True(t, upstream.Retryable())
	assert.Contains(t, upstream.Error(), "500")
}
