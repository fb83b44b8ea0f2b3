package market

import (
	"context"
	"log/slog"
)

// Recorder persists snapshots. journal.Archive satisfies it.
type Recorder interface {
	RecordMarket(ctx context.Context, s Snapshot) error
}

type archivedFeed struct {
	feed   Feed
	rec    Recorder
	logger *slog.Logger
}

// Archived wraps feed so every successful lookup is recorded. Recording
// failures are logged and never reach the caller.
func Archived(feed Feed, rec Recorder, logger *slog.Logger) Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &archivedFeed{feed: feed, rec: rec, logger: logger}
}

func (a *archivedFeed) GetMarketData(ctx context.Context, coinID string) (Snapshot, error) {
	s, err := a.feed.GetMarketData(ctx, coinID)
	if err != nil {
		return s, err
	}
	if err := a.rec.RecordMarket(ctx, s); err != nil {
		a.logger.Warn("unable to archive market snapshot", "coin", s.CoinID, "error", err)
	}
	return s, nil
}
