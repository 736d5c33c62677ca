package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Promoter moves a validated batch into production. It is the only writer
// to the production table.
type Promoter struct {
	staging StagingStore
}

func NewPromoter(staging StagingStore) *Promoter {
	return &Promoter{staging: staging}
}

// Promote applies the validator's verdict. On pass, every staging row is
// copied into production and staging is cleared in one transaction. On
// fail, staging is cleared without copying. Either way staging ends empty:
// rows never survive into the next fetch attempt.
func (p *Promoter) Promote(ctx context.Context, verdict *ValidationResult) (int, error) {
	if !verdict.Passed {
		for _, e := range verdict.Errors {
			log.Warn().Str("reason", e).Msg("Batch rejected")
		}
		if err := p.staging.Clear(ctx); err != nil {
			return 0, fmt.Errorf("failed to clear rejected batch: %w", err)
		}
		return 0, nil
	}

	promoted, err := p.staging.Promote(ctx)
	if err != nil {
		return 0, fmt.Errorf("promotion failed: %w", err)
	}
	return promoted, nil
}
