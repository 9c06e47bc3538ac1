package authorization

import "context"

// Service decides whether an actor holding a role may perform an action on
// an object. It is the permission predicate behind every API route.
type Service interface {
	Authorize(ctx context.Context, actorID string, role string, object string, action string) error
}
