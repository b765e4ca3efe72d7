// Package health serves the gateway's liveness, readiness and version
// endpoints.
//
// Readiness runs every registered check concurrently, each bounded by the
// checker's timeout. The server registers one check per dependency: the
// catalog, the request-log store and the response cache.
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("catalog", func(ctx context.Context) error { ... })
//	r.Get("/ready", checker.ReadinessHandler())
package health
