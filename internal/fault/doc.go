// Package fault decides, per delivery attempt, whether a payload is dropped,
// delayed or passed through, based on mutable simulation parameters.
package fault
