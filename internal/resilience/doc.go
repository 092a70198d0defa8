// package resilience guards outbound calls to third-party music APIs.
//
// It provides a minimum-interval rate limiter, a circuit breaker with
// fail-fast rejection while a provider is misbehaving, and a registry that
// owns one breaker per provider for the process lifetime. The breaker and
// limiter never transform an underlying failure; they only add fail-fast
// behavior and timing.
package resilience
