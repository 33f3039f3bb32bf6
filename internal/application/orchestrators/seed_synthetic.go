package orchestrators

import (
	"context"
	"log/slog"
	"time"

	memberFilter "gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/domain/interval"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/studio"
)

// SyntheticSeedDeps holds the stores needed for demo data seeding.
type SyntheticSeedDeps struct {
	MemberStore   synMemberStore
	IntervalStore synIntervalStore
	LedgerStore   RecordPaymentLedgerStore
	StudioStore   StudioStoreForSeed
}

type synMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	Save(ctx context.Context, m member.Member) error
	List(ctx context.Context, filter memberFilter.ListFilter) ([]member.Member, error)
	UpdateCurrentPlan(ctx context.Context, memberID, status, plan string, category string, monthlyFee int) error
}

type synIntervalStore interface {
	Save(ctx context.Context, iv interval.Interval) error
	FindOverlapping(ctx context.Context, memberID, rangeStart, rangeEnd string) ([]interval.Interval, error)
	ApplyCarveOut(ctx context.Context, plan interval.CarveOutPlan) error
}

// ExecuteSeedSynthetic populates demo members with interval histories and
// partially paid ledgers so a fresh development install has something to
// show. No-op when members already exist.
func ExecuteSeedSynthetic(ctx context.Context, deps SyntheticSeedDeps) error {
	existing, err := deps.MemberStore.List(ctx, memberFilter.ListFilter{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil // Already seeded
	}

	studios, err := deps.StudioStore.List(ctx)
	if err != nil {
		return err
	}
	if len(studios) == 0 {
		studios = []studio.Studio{{ID: "", Name: "default"}}
	}

	now := time.Now()
	thisMonth := now.Format("2006-01")
	lastMonth := now.AddDate(0, -1, 0).Format("2006-01")
	joinDate := now.AddDate(0, -6, 0).Format("2006-01-02")

	seeds := []struct {
		name string
		plan string
		fee  int
	}{
		{"山田太郎", "月4回プラン", 13200},
		{"佐藤花子", "月8回プラン", 19800},
		{"田中一郎", "通い放題プラン", 26400},
		{"鈴木美咲", "月4回プラン", 13200},
	}

	registerDeps := RegisterMemberDeps{
		MemberStore:   deps.MemberStore,
		IntervalStore: deps.IntervalStore,
	}

	for i, seed := range seeds {
		studioID := studios[i%len(studios)].ID
		result, err := ExecuteRegisterMember(ctx, RegisterMemberInput{
			Name:       seed.name,
			StudioID:   studioID,
			Plan:       seed.plan,
			MonthlyFee: seed.fee,
			JoinDate:   joinDate,
		}, registerDeps)
		if err != nil {
			return err
		}

		// Everyone paid last month; only half have paid this month.
		_, err = ExecuteRecordPayment(ctx, RecordPaymentInput{
			MemberID:    result.MemberID,
			TargetMonth: lastMonth,
			Amount:      seed.fee,
			PaymentDate: now.AddDate(0, -1, 0).Format("2006-01-02"),
			StudioID:    studioID,
		}, RecordPaymentDeps{LedgerStore: deps.LedgerStore})
		if err != nil {
			return err
		}
		if i%2 == 0 {
			_, err = ExecuteRecordPayment(ctx, RecordPaymentInput{
				MemberID:    result.MemberID,
				TargetMonth: thisMonth,
				Amount:      seed.fee,
				PaymentDate: now.Format("2006-01-02"),
				StudioID:    studioID,
			}, RecordPaymentDeps{LedgerStore: deps.LedgerStore})
			if err != nil {
				return err
			}
		}
	}

	// One member took last month off, demonstrating the month carve-out.
	members, err := deps.MemberStore.List(ctx, memberFilter.ListFilter{Limit: 1})
	if err != nil {
		return err
	}
	if len(members) == 1 {
		_, err = ExecuteReconcileMonth(ctx, ReconcileMonthInput{
			MemberID:    members[0].ID,
			TargetMonth: lastMonth,
			NewStatus:   interval.StatusSuspended,
			NewPlan:     "休会",
			NewFee:      0,
		}, ReconcileMonthDeps{
			IntervalStore: deps.IntervalStore,
			MemberStore:   deps.MemberStore,
		})
		if err != nil {
			return err
		}
	}

	slog.Info("seed_event", "event", "synthetic_seeded", "members", len(seeds))
	return nil
}
