package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrg(t *testing.T) {
	rec := sampleTrade("01HZX3ABCDEFGHJKMNPQRSTVWX", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	out := FormatTradeOrg(rec)

	assert.True(t, strings.HasPrefix(out, "** Trade: SELL bitcoin (PQRSTVWX)\n"))
	assert.Contains(t, out, ":TRADE_ID: 01HZX3ABCDEFGHJKMNPQRSTVWX\n")
	assert.Contains(t, out, ":REALIZED_PL: 47.45\n")
	assert.Contains(t, out, ":TIME: 2024-01-02T03:04:05Z\n")
	assert.True(t, strings.HasSuffix(out, ":END:\n"))
}

func TestFormatTradesOrg(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	out := FormatTradesOrg([]TradeRecord{sampleTrade("A", at), sampleTrade("B", at)})
	assert.Equal(t, 2, strings.Count(out, "** Trade:"))
	assert.Empty(t, FormatTradesOrg(nil))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "23456789", shortID("123456789"))
}
