package interval

import (
	"context"

	domain "gymdesk/internal/domain/interval"
)

// Store persists membership interval state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Interval, error)
	FindOverlapping(ctx context.Context, memberID, rangeStart, rangeEnd string) ([]domain.Interval, error)
	FindOpenByMember(ctx context.Context, memberID string) (domain.Interval, error)
	ListByMember(ctx context.Context, memberID string) ([]domain.Interval, error)
	FindActiveForStudio(ctx context.Context, studioID, monthStart, monthEnd string) ([]domain.Interval, error)
	Save(ctx context.Context, value domain.Interval) error
	Delete(ctx context.Context, id string) error
	ApplyCarveOut(ctx context.Context, plan domain.CarveOutPlan) error
}
