// package services defines typed HTTP clients for external music APIs.
//
// Each client decodes provider wire JSON into explicit typed structs at its
// own boundary and hands only normalized records (PlaylistInfo, ItemPage,
// TrackDetail, catalog.Candidate) to callers; loosely-typed provider JSON
// never leaks past this layer. Every outbound call is throttled by a
// [resilience.RateLimiter] and guarded by a [resilience.Breaker], both
// injected at construction. Provider errors pass through the breaker
// unchanged.
package services
