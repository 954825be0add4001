// Package coord implements the asynchronous inference job lifecycle for a
// single-process GPU coordinator. It is structured into small files by concern:
//
//   - coordinator.go: Coordinator facade, per-model runtime registry, janitor.
//   - store.go: in-memory job table with compare-and-set transitions and TTL sweep.
//   - gate.go: bounded, non-blocking permit gate around the engine call.
//   - readiness.go: model load state machine with idempotent single-flight warmup.
//   - runner.go: submit precondition and asynchronous job execution.
//   - errors.go: error types and predicates (IsNotReady, IsOverloaded, ...).
//   - status.go: operational status report.
//   - metrics.go: Prometheus instrumentation.
//
// The job store and readiness state are the only shared mutable resources.
// Both validate the expected current state before writing the next one, so an
// illegal transition is rejected rather than silently applied.
package coord
