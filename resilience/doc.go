// Package resilience provides guards that refuse or delay outbound calls
// without ever re-sending them: a circuit breaker that fails fast while an
// endpoint is unhealthy, and a token-bucket rate limiter.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("dbpedia"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 5, Burst: 10})
//
//	if err := rl.Wait(ctx); err != nil {
//	    return err
//	}
//	err := cb.Execute(func() error { return send(ctx) })
package resilience
