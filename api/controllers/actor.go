package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/veloramarket/loyalty-backend/api/middleware"
	"github.com/veloramarket/loyalty-backend/pkg/outbox"
)

// actorFromContext builds the event actor from the authenticated caller, nil
// when the request carries no usable identity.
func actorFromContext(ctx context.Context) *outbox.ActorRef {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return nil
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: userID,
		Role:   middleware.RoleFromContext(ctx),
	}
}
