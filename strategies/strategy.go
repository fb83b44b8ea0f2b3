// Package strategies turns market observations into trades.
package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
)

type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Decision is the outcome of one Decide or Recommend call. Order is the
// sized order, if any; Result is set only once it executed.
type Decision struct {
	Signal Signal                 `json:"signal"`
	Advice string                 `json:"advice,omitempty"`
	Order  *portfolio.Order       `json:"order,omitempty"`
	Result *portfolio.TradeResult `json:"result,omitempty"`
}

func (d Decision) NoAction() bool { return d.Result == nil }

// Strategy is called once per simulation tick.
type Strategy interface {
	Decide(ctx context.Context, symbol string, snap market.Snapshot, acct portfolio.Account) (Decision, error)
}

// Executor applies orders to the portfolio. sim.Engine implements it.
type Executor interface {
	Execute(ctx context.Context, o portfolio.Order) (portfolio.TradeResult, error)
}

// Noop never trades. It lets a simulation track valuation only.
type Noop struct{}

func (Noop) Decide(context.Context, string, market.Snapshot, portfolio.Account) (Decision, error) {
	return Decision{Signal: SignalHold}, nil
}

// ByName builds the named strategy. advisor may be nil for "noop".
func ByName(name string, advisor Advisor, exec Executor, opts ...AdvisoryOption) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none", "hold":
		return Noop{}, nil
	case "advisory", "ai", "":
		if advisor == nil {
			return nil, fmt.Errorf("strategy %q needs an advisor", name)
		}
		return NewAdvisory(advisor, exec, opts...), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: advisory, noop)", name)
	}
}
