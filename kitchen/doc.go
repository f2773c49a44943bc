// Package kitchen implements the restaurant brigade on top of the core actor
// runtime.
//
// A Client orders a dish from its Waiter, the Waiter passes the Order to the
// Chef, and the Chef hands a PrepareDish task to one Cook picked uniformly at
// random. The finished DishPrepared travels back through the Chef to the
// Waiter named in it, which serves the Client named in it.
//
// There is no order table anywhere: every message carries the full reply path
// (waiter and client handles), so the only state in the kitchen is the Chef's
// roster of registered cooks and waiters, owned by the Chef's own loop.
package kitchen
