package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func sample() (market.Snapshot, portfolio.Account) {
	snap := market.Snapshot{CoinID: "bitcoin", Symbol: "BTC", Price: decimal.RequireFromString("50000")}
	acct := portfolio.Account{Cash: decimal.RequireFromString("10000"), InitialCash: decimal.RequireFromString("10000")}
	return snap, acct
}

func TestDeepSeekAnalyze(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Buy a little bitcoin."}}]}`))
	}))
	defer srv.Close()

	snap, acct := sample()
	ds := NewDeepSeek("secret", WithBaseURL(srv.URL+"/"), WithTimeout(time.Second))
	text, err := ds.Analyze(context.Background(), snap, acct, "Analyze the trading opportunity for bitcoin.")
	require.NoError(t, err)
	assert.Equal(t, "Buy a little bitcoin.", text)

	assert.Equal(t, DefaultDeepSeekModel, got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, `"id":"bitcoin"`)
	assert.Contains(t, got.Messages[1].Content, `"balance":"10000"`)
	assert.Contains(t, got.Messages[1].Content, "Analyze the trading opportunity for bitcoin.")
}

func TestDeepSeekFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"overloaded"}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			snap, acct := sample()
			_, err := NewDeepSeek("k", WithBaseURL(srv.URL)).Analyze(context.Background(), snap, acct, "p")
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestDeepSeekWithoutKey(t *testing.T) {
	snap, acct := sample()
	_, err := NewDeepSeek("").Analyze(context.Background(), snap, acct, "p")
	assert.ErrorIs(t, err, ErrUnavailable)
}

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	config *genai.GenerateContentConfig
	text   string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func TestGeminiAnalyze(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "Sell, "}, {Text: "momentum is fading."}}},
		}},
	}}
	g := &Gemini{models: fake, model: DefaultGeminiModel}

	snap, acct := sample()
	text, err := g.Analyze(context.Background(), snap, acct, "Analyze the trading opportunity for bitcoin.")
	require.NoError(t, err)
	assert.Equal(t, "Sell, momentum is fading.", text)
	assert.Equal(t, DefaultGeminiModel, fake.model)
	assert.Contains(t, fake.text, "Analyze the trading opportunity for bitcoin.")
	require.NotNil(t, fake.config.SystemInstruction)
	assert.Equal(t, systemPrompt, fake.config.SystemInstruction.Parts[0].Text)
}

func TestGeminiFailures(t *testing.T) {
	snap, acct := sample()

	g := &Gemini{models: &fakeModels{err: errors.New("quota exceeded")}}
	_, err := g.Analyze(context.Background(), snap, acct, "p")
	assert.ErrorIs(t, err, ErrUnavailable)

	g = &Gemini{models: &fakeModels{resp: &genai.GenerateContentResponse{}}}
	_, err = g.Analyze(context.Background(), snap, acct, "p")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestScriptedCycles(t *testing.T) {
	s := NewScripted("buy", "hold", "sell")
	snap, acct := sample()

	var got []string
	for range 4 {
		text, err := s.Analyze(context.Background(), snap, acct, "")
		require.NoError(t, err)
		got = append(got, text)
	}
	assert.Equal(t, []string{"buy", "hold", "sell", "buy"}, got)

	text, err := NewScripted().Analyze(context.Background(), snap, acct, "")
	require.NoError(t, err)
	assert.Equal(t, "hold", text)
}
