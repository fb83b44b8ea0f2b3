package strategies

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/shopspring/decimal"
)

// Advisor produces a free-form recommendation for the snapshot and
// account. Implementations live in the advisor package.
type Advisor interface {
	Analyze(ctx context.Context, snap market.Snapshot, acct portfolio.Account, prompt string) (string, error)
}

var DefaultBuyFraction = decimal.RequireFromString("0.1")

var (
	buyTerms  = []string{"buy", "买入"}
	sellTerms = []string{"sell", "卖出"}
)

// Classify maps advisory text to a signal by case-insensitive keyword
// match. Text naming both directions is a buy.
func Classify(text string) Signal {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, buyTerms):
		return SignalBuy
	case containsAny(t, sellTerms):
		return SignalSell
	default:
		return SignalHold
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// Prompt is the question put to the advisor for symbol.
func Prompt(symbol string) string {
	return fmt.Sprintf("Analyze the trading opportunity for %s.", symbol)
}

// Advisory buys with a fixed fraction of cash when the advisor says buy
// and closes the whole position when it says sell.
type Advisory struct {
	advisor     Advisor
	exec        Executor
	buyFraction decimal.Decimal
	logger      *slog.Logger
}

type AdvisoryOption func(*Advisory)

// WithBuyFraction sets the share of cash invested on a buy signal.
func WithBuyFraction(f decimal.Decimal) AdvisoryOption {
	return func(a *Advisory) { a.buyFraction = f }
}

func WithLogger(l *slog.Logger) AdvisoryOption {
	return func(a *Advisory) { a.logger = l }
}

// NewAdvisory builds the strategy. exec may be nil when the strategy is
// only asked for recommendations.
func NewAdvisory(advisor Advisor, exec Executor, opts ...AdvisoryOption) *Advisory {
	a := &Advisory{
		advisor:     advisor,
		exec:        exec,
		buyFraction: DefaultBuyFraction,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recommend asks the advisor about symbol and sizes the order its advice
// implies, without executing it. Order is nil when no trade follows.
func (a *Advisory) Recommend(ctx context.Context, symbol string, snap market.Snapshot, acct portfolio.Account) (Decision, error) {
	advice, err := a.advisor.Analyze(ctx, snap, acct, Prompt(symbol))
	if err != nil {
		return Decision{}, fmt.Errorf("advisory for %s: %w", symbol, err)
	}

	dec := Decision{Signal: Classify(advice), Advice: advice}
	a.logger.Info("advisory received", "symbol", symbol, "signal", dec.Signal)

	order, ok, err := a.plan(dec.Signal, symbol, snap.Price, acct)
	if err != nil || !ok {
		return dec, err
	}
	dec.Order = &order
	return dec, nil
}

func (a *Advisory) Decide(ctx context.Context, symbol string, snap market.Snapshot, acct portfolio.Account) (Decision, error) {
	dec, err := a.Recommend(ctx, symbol, snap, acct)
	if err != nil || dec.Order == nil {
		return dec, err
	}
	if a.exec == nil {
		return dec, fmt.Errorf("advisory for %s: no executor", symbol)
	}

	res, err := a.exec.Execute(ctx, *dec.Order)
	if err != nil {
		return dec, err
	}
	dec.Result = &res
	return dec, nil
}

// plan sizes the order for signal. ok is false when there is nothing to
// do: a hold, a buy that rounds to nothing, or a sell with no position.
func (a *Advisory) plan(signal Signal, symbol string, price decimal.Decimal, acct portfolio.Account) (portfolio.Order, bool, error) {
	switch signal {
	case SignalBuy:
		if !price.IsPositive() {
			return portfolio.Order{}, false, fmt.Errorf("%w: market price of %s is %s", portfolio.ErrInvalidOrder, symbol, price)
		}
		qty := acct.Cash.Mul(a.buyFraction).Div(price)
		if !qty.IsPositive() {
			return portfolio.Order{}, false, nil
		}
		return portfolio.Order{Symbol: symbol, Side: portfolio.SideBuy, Quantity: qty, Price: price, Reason: "advisory"}, true, nil

	case SignalSell:
		pos, held := acct.Position(symbol)
		if !held || !pos.Quantity.IsPositive() {
			return portfolio.Order{}, false, nil
		}
		return portfolio.Order{Symbol: symbol, Side: portfolio.SideSell, Quantity: pos.Quantity, Price: price, Reason: "advisory"}, true, nil
	}
	return portfolio.Order{}, false, nil
}
