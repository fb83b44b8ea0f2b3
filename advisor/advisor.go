// Package advisor asks a language model for a trading recommendation.
// Every implementation satisfies strategies.Advisor.
package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
)

var ErrUnavailable = errors.New("advisory service unavailable")

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 500
)

const systemPrompt = "You are a professional cryptocurrency trading analyst. " +
	"Based on the market data and account information provided, give a trading recommendation."

// userPrompt embeds the snapshot and account as JSON followed by the
// question and the expected answer layout.
func userPrompt(snap market.Snapshot, acct portfolio.Account, prompt string) (string, error) {
	m, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode market data: %w", err)
	}
	a, err := json.Marshal(acct)
	if err != nil {
		return "", fmt.Errorf("encode account: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Market data: %s\n", m)
	fmt.Fprintf(&b, "Account data: %s\n", a)
	fmt.Fprintf(&b, "Question: %s\n\n", prompt)
	b.WriteString("Please answer with:\n")
	b.WriteString("1. Recommendation (buy, sell or hold)\n")
	b.WriteString("2. Reasoning\n")
	b.WriteString("3. Risk assessment\n")
	b.WriteString("4. Suggested quantity\n")
	return b.String(), nil
}
