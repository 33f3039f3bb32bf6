package studio

import (
	"context"

	domain "gymdesk/internal/domain/studio"
)

// Store persists Studio state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Studio, error)
	Save(ctx context.Context, value domain.Studio) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Studio, error)
}
