// Package registry tracks live subscriber connections per transport and the
// process-wide delivery counters.
//
// The live sets are the single authority for "is this connection live".
// Unregister is idempotent so duplicate close/error signals cannot corrupt
// the counts.
package registry
