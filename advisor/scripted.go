package advisor

import (
	"context"
	"sync"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
)

// Scripted replays canned answers in order, wrapping around at the end.
// It needs no network and is used for offline runs.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	next      int
}

func NewScripted(responses ...string) *Scripted {
	if len(responses) == 0 {
		responses = []string{"hold"}
	}
	return &Scripted{responses: responses}
}

func (s *Scripted) Analyze(context.Context, market.Snapshot, portfolio.Account, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.responses[s.next]
	s.next = (s.next + 1) % len(s.responses)
	return r, nil
}
