package orchestrators

import (
	"context"
	"log/slog"

	"gymdesk/internal/domain/studio"

	"github.com/google/uuid"
)

// StudioStoreForSeed defines the store interface needed by SeedStudios.
type StudioStoreForSeed interface {
	Save(ctx context.Context, s studio.Studio) error
	List(ctx context.Context) ([]studio.Studio, error)
}

// SeedStudiosDeps holds dependencies for SeedStudios.
type SeedStudiosDeps struct {
	StudioStore StudioStoreForSeed
}

// ExecuteSeedStudios creates default studios if none exist.
func ExecuteSeedStudios(ctx context.Context, deps SeedStudiosDeps) error {
	existing, err := deps.StudioStore.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil // Already seeded
	}

	studios := []studio.Studio{
		{ID: uuid.New().String(), Name: "銀座スタジオ", Code: "GNZ"},
		{ID: uuid.New().String(), Name: "渋谷スタジオ", Code: "SBY"},
	}

	for _, s := range studios {
		if err := deps.StudioStore.Save(ctx, s); err != nil {
			return err
		}
	}

	slog.Info("seed_event", "event", "studios_seeded", "studios", len(studios))
	return nil
}
