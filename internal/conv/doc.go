// Package conv provides safe integer type conversion utilities.
//
// Header fields are stored as unsigned 64-bit integers; these helpers
// bounds-check them before they become lengths and ids.
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead to avoid overhead.
package conv
