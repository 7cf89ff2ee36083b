package quote

import (
	"context"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/model"
)

// Recorder saves quotes somewhere for later analysis.
type Recorder interface {
	Record(ctx context.Context, quote model.Quote) error
}

// Archived records every quote another Quoter returns.
//
// Recording failures are logged and never fail the lookup.
type Archived struct {
	next     Quoter
	recorder Recorder
	log      *zap.Logger
}

func NewArchived(next Quoter, recorder Recorder, logger *zap.Logger) *Archived {
	return &Archived{next: next, recorder: recorder, log: logger}
}

func (archived *Archived) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	found, err := archived.next.Lookup(ctx, symbol)

	if err != nil {
		return nil, err
	}

	if err := archived.recorder.Record(ctx, *found); err != nil {
		archived.log.Warn("Failed to archive quote", zap.String("symbol", found.Symbol), zap.Error(err))
	}

	return found, nil
}
