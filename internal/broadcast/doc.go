// Package broadcast implements the tick fan-out for both transports.
//
// Server-sent event subscribers each run their own ticker from connect time and
// count their own sequence. WebSocket subscribers share one ticker and one
// sequence counter. Every delivery passes through the fault injector, which may
// drop it or delay the write; delayed writes re-check liveness before sending.
// A liveness sweep probes WebSocket peers and reaps the silent ones.
package broadcast
