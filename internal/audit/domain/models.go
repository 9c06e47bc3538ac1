package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

const (
	ActionPaymentRecorded = "PAYMENT_RECORDED"
	ActionBillFullyPaid   = "BILL_FULLY_PAID"

	ActionAuthorizationDenied = "AUTHORIZATION_DENIED"
)

const (
	TargetTypePayment = "payments"
	TargetTypeBill    = "bills"
	TargetTypeAccount = "accounts"

	TargetTypeCapability = "capability"
)

// AuditLog is an append-only record of a state change. OldValues is nil for
// pure inserts.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:text;not null"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:text"`
	OldValues  datatypes.JSONMap `json:"old_values,omitempty" gorm:"type:jsonb"`
	NewValues  datatypes.JSONMap `json:"new_values" gorm:"type:jsonb;not null"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"type:text"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"type:text"`
	RequestID  *string           `json:"request_id,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// AuditCursor orders audit entries by created_at desc, id desc.
type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
