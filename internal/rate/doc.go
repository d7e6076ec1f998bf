// Package rate implements the login brute-force guard on top of cache.Store.
//
// # Window semantics
//
// Fixed-window counters: INCR with TTL set only on the first hit, so later
// attempts never extend the window. Keys are "al:" followed by the
// normalized identifier.
//
// When the cache is unreachable the guard fails closed unless Config.FailOpen
// is set.
package rate
