// Package health provides liveness and readiness probes for the watch
// server.
//
// # Endpoints
//
//   - /health: liveness, 200 while the process runs
//   - /ready: readiness, 200 when every registered check passes, else 503
//   - /version: build information
//
// # Checks
//
// SchemaCheck and WorkersCheck inspect a calculation engine:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("schema", health.SchemaCheck(eng))
//	checker.Register("workers", health.WorkersCheck(eng))
//	health.Register(mux, checker, health.BuildInfo{Version: version})
//
// Checks run concurrently, each under the checker timeout.
package health
