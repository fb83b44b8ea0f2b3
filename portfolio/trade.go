package portfolio

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/id"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts "buy" or "sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, s)
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
)

// Trade is one order attempt. It starts pending and moves to executed
// once the ledger mutation it describes has been applied, or to
// cancelled while still pending.
type Trade struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"timestamp"`
	Status    Status          `json:"status"`
}

func NewTrade(symbol string, side Side, quantity, price decimal.Decimal, at time.Time) Trade {
	return Trade{
		ID:        id.New(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		CreatedAt: at,
		Status:    StatusPending,
	}
}

func (t *Trade) Execute() error {
	if t.Status != StatusPending {
		return fmt.Errorf("execute trade %s: %w (status %s)", t.ID, ErrNotPending, t.Status)
	}
	t.Status = StatusExecuted
	return nil
}

func (t *Trade) Cancel() error {
	if t.Status != StatusPending {
		return fmt.Errorf("cancel trade %s: %w (status %s)", t.ID, ErrNotPending, t.Status)
	}
	t.Status = StatusCancelled
	return nil
}

// Value is the notional of the trade before fees.
func (t Trade) Value() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

func (t Trade) MarshalJSON() ([]byte, error) {
	type plain Trade
	return json.Marshal(struct {
		plain
		Value decimal.Decimal `json:"value"`
	}{plain(t), t.Value()})
}
