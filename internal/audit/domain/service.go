package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/revenue/pkg/db/pagination"
)

// Entry is one change to record. Actor fields left empty are filled from
// the request context; when that is empty too the actor is "system".
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	OldValues  map[string]any
	NewValues  map[string]any
	ActorType  string
	ActorID    string
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidTarget    = errors.New("invalid_target")
)
