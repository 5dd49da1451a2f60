// Package domain defines the core domain types and interfaces.
//
// Payloads, transport kinds, simulation parameters, stats and the send/probe
// capabilities the transports hand to the broadcast engine. No implementation
// code - just contracts.
package domain
