package projections

import (
	"context"

	memberStore "gymdesk/internal/adapters/storage/member"
	domainInterval "gymdesk/internal/domain/interval"
	domainLedger "gymdesk/internal/domain/ledger"
	domainMember "gymdesk/internal/domain/member"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (domainMember.Member, error)
	List(ctx context.Context, filter memberStore.ListFilter) ([]domainMember.Member, error)
}

// IntervalStore interface for membership interval queries.
type IntervalStore interface {
	FindActiveForStudio(ctx context.Context, studioID, monthStart, monthEnd string) ([]domainInterval.Interval, error)
	ListByMember(ctx context.Context, memberID string) ([]domainInterval.Interval, error)
}

// LedgerStore interface for payment record queries.
type LedgerStore interface {
	ListForMonth(ctx context.Context, studioID, targetDate string) ([]domainLedger.PaymentRecord, error)
	ListMemberIDsForMonth(ctx context.Context, targetDate, recordType string) ([]string, error)
	ListRecentByMember(ctx context.Context, memberID, recordType, beforeDate string, limit int) ([]domainLedger.PaymentRecord, error)
}
