package rugcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/httpx"
)

const mint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func TestClient_HoneypotFlagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tokens/"+mint+"/report", r.URL.Path)
		w.Write([]byte(`{"tokenMeta":{"name":"Trap","symbol":"TRAP"},"score":9000,
			"risks":[
				{"name":"Low Liquidity","level":"warn"},
				{"name":"Honeypot","level":"danger","description":"sells disabled"}]}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL, nil).Honeypot(context.Background(), mint)
	require.NoError(t, err)
	assert.True(t, res.IsHoneypot)
	assert.False(t, res.CanSell)
	assert.Equal(t, "Honeypot: sells disabled", res.Reason)
	assert.Equal(t, "rugcheck", res.Source)
}

func TestClient_HoneypotNoVerdict(t *testing.T) {
	tests := map[string]string{
		"no risks":          `{"score":1,"risks":[]}`,
		"honeypot low risk": `{"score":1,"risks":[{"name":"Honeypot suspicion","level":"warn"}]}`,
		"other severe risk": `{"score":1,"risks":[{"name":"Mint Authority still enabled","level":"danger"}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, nil).Honeypot(context.Background(), mint)
			assert.ErrorIs(t, err, ErrNoVerdict)
		})
	}
}

func TestClient_ReportUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, httpx.WithMaxRetries(0)).Report(context.Background(), mint)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestClient_ReportFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tokenMeta":{"name":"Good","symbol":"GD"},"score":120,
			"topHolders":[{"address":"a","pct":12.5}]}`))
	}))
	defer server.Close()

	report, err := NewClient(server.URL, nil).Report(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "GD", report.TokenMeta.Symbol)
	assert.Equal(t, 120.0, report.Score)
	require.Len(t, report.TopHolders, 1)
	assert.Equal(t, 12.5, report.TopHolders[0].Pct)
}
