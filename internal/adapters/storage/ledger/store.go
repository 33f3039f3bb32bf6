package ledger

import (
	"context"

	domain "gymdesk/internal/domain/ledger"
)

// Store persists payment ledger state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.PaymentRecord, error)
	GetByMemberMonth(ctx context.Context, memberID, targetDate, recordType string) (domain.PaymentRecord, error)
	ListForMonth(ctx context.Context, studioID, targetDate string) ([]domain.PaymentRecord, error)
	ListMemberIDsForMonth(ctx context.Context, targetDate, recordType string) ([]string, error)
	ListRecentByMember(ctx context.Context, memberID, recordType, beforeDate string, limit int) ([]domain.PaymentRecord, error)
	ListByMember(ctx context.Context, memberID string) ([]domain.PaymentRecord, error)
	Save(ctx context.Context, value domain.PaymentRecord) error
	Delete(ctx context.Context, id string) error
}
