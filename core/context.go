package core

import "context"

type selfKey struct{}

// withSelf records the handling actor's handle on a message context.
func withSelf(ctx context.Context, id ActorID) context.Context {
	return context.WithValue(ctx, selfKey{}, id)
}

// SelfFromContext returns the handle of the actor handling the current message.
func SelfFromContext(ctx context.Context) (ActorID, bool) {
	id, ok := ctx.Value(selfKey{}).(ActorID)
	return id, ok
}
