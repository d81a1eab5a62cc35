package honeypot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Check(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/IsHoneypot", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("address"))
		assert.Equal(t, "56", r.URL.Query().Get("chainID"))
		w.Write([]byte(`{"simulationSuccess":true,
			"honeypotResult":{"isHoneypot":true,"honeypotReason":"transfer reverted"},
			"simulationResult":{"buyTax":2,"sellTax":100}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	res, err := c.Check(context.Background(), "0xabc", 56)
	require.NoError(t, err)
	assert.True(t, res.IsHoneypot)
	assert.False(t, res.CanSell)
	assert.Equal(t, "transfer reverted", res.Reason)
	assert.Equal(t, 100.0, res.SellTax)
	assert.Equal(t, "honeypot.is", res.Source)
}

func TestClient_CheckNoVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"simulationSuccess":false}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	_, err := c.Check(context.Background(), "0xabc", 1)
	assert.True(t, errors.Is(err, ErrNoVerdict))
}

func TestClient_TopHolders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/TopHolders", r.URL.Path)
		w.Write([]byte(`{"totalSupply":"1000000000000000000000","holders":[
			{"address":"0x1","balance":"400000000000000000000"},
			{"address":"0x2","balance":"100000000000000000000"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	res, err := c.TopHolders(context.Background(), "0xabc", 1)
	require.NoError(t, err)
	pct, err := res.Top10Percent()
	require.NoError(t, err)
	assert.InDelta(t, 50.0, pct, 1e-9)
}

func TestTopHolders_InvalidSupply(t *testing.T) {
	_, err := (&TopHoldersResult{TotalSupply: "0"}).Top10Percent()
	assert.Error(t, err)
}
