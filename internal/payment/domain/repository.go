package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Cursor orders payments by payment_date desc, id desc.
type Cursor struct {
	PaymentDate time.Time
	ID          snowflake.ID
}

type ListFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	AccountType string
	Method      Method
	Status      PaymentStatus
	Search      string
	Cursor      *Cursor
	Limit       int
}

type StatsFilter struct {
	From        *time.Time
	To          *time.Time
	AccountType string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*PaymentView, error)
	// List returns up to Limit+1 rows so callers can detect another page.
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*PaymentView, error)
	Stats(ctx context.Context, db *gorm.DB, filter StatsFilter) (Stats, error)
}
