// Package domain models cumulonimbus (thunderhead) formation risk around a
// geographic point.
//
// # Data Source
//
// Atmospheric soundings come from the Open-Meteo forecast API
// (https://open-meteo.com/), requested per coordinate with hourly cape,
// lifted_index, convective_inhibition, and layered cloud cover variables plus
// the current 2 m temperature. Index 0 of each hourly series is read as "now".
// The adapter in internal/adapter/openmeteo maps one response into a
// [SoundingSample]; this package never touches the wire format.
//
// # Parameter Conventions
//
// CAPE (Convective Available Potential Energy, J/kg):
//
//	Higher values favor strong updrafts. ≥2500 is extreme instability,
//	1000–2500 supports organized storms, <100 is effectively stable.
//
// Lifted Index (K):
//
//	Stability metric; more negative means more unstable. ≤−6 indicates
//	severe-weather potential, positive values indicate a stable column.
//
// CIN (Convective Inhibition, J/kg):
//
//	The energy barrier suppressing convection. Sign conventions differ
//	between providers; throughout this codebase CIN is a POSITIVE
//	suppression magnitude. 0 means no cap, larger means a stronger cap.
//	The provider adapter normalizes whatever sign the upstream emits
//	(see openmeteo.Client) so a silent sign flip cannot invert scoring.
//
// # Scoring
//
// [Scorer] maps a sounding onto weighted component scores in [0,1]:
//
//	CAPE   weight 0.50:  ≥2500→1.0  ≥1000→0.8  ≥500→0.6  ≥100→0.3  else 0.0
//	LI     weight 0.35:  ≤−6→1.0  ≤−3→0.8  ≤0→0.6  ≤3→0.4  ≤6→0.2  else 0.0
//	CIN    weight 0.05:  ≤10→0.3  ≤50→0.1  else 0.0
//	Temp   weight 0.10:  ≥30→1.0  ≥25→0.8  ≥20→0.6  ≥15→0.4  else 0.0
//
// An optional cloud-cover component (max of mid and high cover) carries
// weight 0.15 with the base weights scaled by 0.85 so active weights always
// sum to 1.0. The decision threshold is 0.50: a total score at or above it
// sets IsLikely and RiskLevelHigh. One constant serves both purposes; the
// "likely" cutoff and the High band must never diverge per deployment.
//
// # Geometry
//
// [Project] offsets a coordinate along a fixed compass bearing using an
// equirectangular approximation (111 km per degree of latitude, with the
// mandatory cos(latitude) correction for longitude). This is an intentional
// simplification, not ellipsoidal geodesy; east/west projection is degenerate
// near the poles and reported as [DegenerateInputError].
//
// # Grid Quantization
//
// [GridKeyFor] buckets coordinates to 0.01° (~1.1 km) by flooring, so nearby
// requests collapse onto one cache cell. The cell size is chosen coarser than
// typical user movement within a cache TTL window yet fine enough not to blur
// distinct weather regimes.
package domain
