package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/revenue/internal/audit/domain"
	"github.com/smallbiznis/revenue/internal/auditcontext"
	"github.com/smallbiznis/revenue/internal/authorization"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
)

// Identity is asserted by an upstream gateway through these headers.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type Actor struct {
	Type string
	ID   string
	Role string
}

func (a Actor) toPaymentActor() paymentdomain.Actor {
	return paymentdomain.Actor{Type: a.Type, ID: a.ID, Role: a.Role}
}

// ActorContext copies the asserted identity into the request context so the
// audit recorder and request logs can attribute the call.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorRole)))
		if actorID != "" {
			ctx := c.Request.Context()
			ctx = auditcontext.WithActor(ctx, actorTypeForRole(role), actorID)
			ctx = auditcontext.WithActorRole(ctx, role)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func actorTypeForRole(role string) string {
	if role == authorization.RoleSystem {
		return string(auditdomain.ActorTypeSystem)
	}
	return string(auditdomain.ActorTypeUser)
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	if c == nil {
		return Actor{}, false
	}
	ctx := c.Request.Context()
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	if actorID == "" {
		return Actor{}, false
	}
	return Actor{
		Type: actorType,
		ID:   actorID,
		Role: auditcontext.ActorRoleFromContext(ctx),
	}, true
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor.ID, actor.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
