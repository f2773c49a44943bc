// Package core implements the actor runtime that brigade components run on.
//
// Every actor owns one goroutine and one buffered mailbox. Messages for a
// single actor are handled strictly in arrival order, while different actors
// run in parallel. Actors address each other by ActorID handles, and the
// ActorSystem routes opaque payloads between them.
package core
