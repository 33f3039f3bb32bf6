package audit

import (
	"context"

	domain "gymdesk/internal/domain/audit"
)

// Filter carries optional criteria for listing audit events.
type Filter struct {
	Category   *domain.Category
	Action     *domain.Action
	ActorID    *string
	ResourceID *string
	FromDate   *string
	ToDate     *string
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event domain.Event) error
	GetByID(ctx context.Context, id string) (domain.Event, error)
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)
}
