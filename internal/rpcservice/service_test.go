package rpcservice

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/solana"
	"solana-token-sniper/internal/solana/stub"
)

// fakeClient is a scripted node.
type fakeClient struct {
	*stub.RPCClient

	url       string
	slotErr   error
	slotWait  time.Duration
	healthErr error
	feeRes    *solana.PriorityFeeResult
	feeErr    error
	sendErr   func(call int) error
	txErr     interface{}

	mu        sync.Mutex
	sendCalls int
}

func newFakeClient(url string) *fakeClient {
	return &fakeClient{RPCClient: stub.NewRPCClient(), url: url}
}

func (f *fakeClient) Endpoint() string { return f.url }

func (f *fakeClient) GetSlot(ctx context.Context) (int64, error) {
	if f.slotWait > 0 {
		time.Sleep(f.slotWait)
	}
	if f.slotErr != nil {
		return 0, f.slotErr
	}
	return 1000, nil
}

func (f *fakeClient) GetHealth(context.Context) error { return f.healthErr }

func (f *fakeClient) GetBalance(context.Context, string) (uint64, error) {
	return 1_500_000_000, nil
}

func (f *fakeClient) GetLatestBlockhash(context.Context) (*solana.Blockhash, error) {
	return &solana.Blockhash{Blockhash: "hash", LastValidBlockHeight: 10}, nil
}

func (f *fakeClient) GetPriorityFeeEstimate(context.Context, []string) (*solana.PriorityFeeResult, error) {
	return f.feeRes, f.feeErr
}

func (f *fakeClient) SendTransaction(context.Context, string, solana.SendOpts) (string, error) {
	f.mu.Lock()
	f.sendCalls++
	call := f.sendCalls
	f.mu.Unlock()
	if f.sendErr != nil {
		if err := f.sendErr(call); err != nil {
			return "", err
		}
	}
	return "sig", nil
}

func (f *fakeClient) GetSignatureStatuses(context.Context, []string) ([]*solana.SignatureStatus, error) {
	return []*solana.SignatureStatus{{Slot: 77, ConfirmationStatus: "confirmed", Err: f.txErr}}, nil
}

func (f *fakeClient) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

const premiumURL = "https://premium.example/?api-key=secret"

// newTestService wires fakes keyed by URL; unknown URLs get a healthy fake.
func newTestService(t *testing.T, clients map[string]*fakeClient) *Service {
	t.Helper()
	if _, ok := clients[premiumURL]; !ok {
		clients[premiumURL] = newFakeClient(premiumURL)
	}
	svc, err := New(Options{
		Config: Config{
			PremiumURL:          premiumURL,
			SendBackoff:         time.Millisecond,
			ConfirmPollInterval: time.Millisecond,
			ConfirmTimeout:      time.Second,
			ProbeTimeout:        time.Second,
		},
		Dial: func(endpoint string) Client {
			if c, ok := clients[endpoint]; ok {
				return c
			}
			c := newFakeClient(endpoint)
			clients[endpoint] = c
			return c
		},
	})
	require.NoError(t, err)
	return svc
}

// signedTx builds a minimal legacy transaction carrying one signature.
func signedTx(fill byte) (string, string) {
	sig := make([]byte, 64)
	for i := range sig {
		sig[i] = fill
	}
	payer := make([]byte, 32)
	payer[0] = 1
	program := make([]byte, 32)
	program[0] = 2

	raw := []byte{1}
	raw = append(raw, sig...)
	raw = append(raw, 1, 0, 1) // header
	raw = append(raw, 2)       // account keys
	raw = append(raw, payer...)
	raw = append(raw, program...)
	raw = append(raw, make([]byte, 32)...) // recent blockhash
	raw = append(raw, 1)                   // instructions
	raw = append(raw, 1, 1, 0, 0)          // program index, accounts [0], empty data
	return base64.StdEncoding.EncodeToString(raw), base58.Encode(sig)
}

func TestService_ActiveEndpointDefaultsToPremium(t *testing.T) {
	svc := newTestService(t, map[string]*fakeClient{})

	ep := svc.ActiveEndpoint()
	assert.Equal(t, EndpointPremium, ep.Kind)
	assert.Equal(t, premiumURL, ep.URL)
}

func TestService_SetCustomRPC_TakesPrecedence(t *testing.T) {
	svc := newTestService(t, map[string]*fakeClient{})

	require.NoError(t, svc.SetCustomRPC(context.Background(), "https://custom.example"))

	ep := svc.ActiveEndpoint()
	assert.Equal(t, EndpointCustom, ep.Kind)
	assert.Equal(t, "https://custom.example", ep.URL)
	assert.Equal(t, "https://custom.example", svc.ActiveClient().Endpoint())
}

func TestService_SetCustomRPC_UnreachableKeepsPrevious(t *testing.T) {
	down := newFakeClient("https://down.example")
	down.slotErr = errors.New("connection refused")
	clients := map[string]*fakeClient{"https://down.example": down}
	svc := newTestService(t, clients)

	err := svc.SetCustomRPC(context.Background(), "https://down.example")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, EndpointPremium, svc.ActiveEndpoint().Kind)

	// A working custom endpoint must also survive a failed replacement.
	require.NoError(t, svc.SetCustomRPC(context.Background(), "https://good.example"))
	err = svc.SetCustomRPC(context.Background(), "https://down.example")
	require.Error(t, err)
	assert.Equal(t, "https://good.example", svc.ActiveEndpoint().URL)
}

func TestService_SetCustomRPC_InvalidURL(t *testing.T) {
	clients := map[string]*fakeClient{}
	svc := newTestService(t, clients)

	for _, bad := range []string{"ftp://node.example", "not a url", "https://"} {
		err := svc.SetCustomRPC(context.Background(), bad)
		assert.ErrorIs(t, err, domain.ErrValidation, bad)
	}
	assert.Len(t, clients, 1, "invalid endpoints must not be dialled")
	assert.Equal(t, EndpointPremium, svc.ActiveEndpoint().Kind)
}

func TestService_SetCustomRPC_EmptyClears(t *testing.T) {
	svc := newTestService(t, map[string]*fakeClient{})
	require.NoError(t, svc.SetCustomRPC(context.Background(), "https://custom.example"))
	require.NoError(t, svc.SetCustomRPC(context.Background(), ""))
	assert.Equal(t, EndpointPremium, svc.ActiveEndpoint().Kind)
}

func TestService_GetPriorityFeeEstimate(t *testing.T) {
	premium := newFakeClient(premiumURL)
	premium.feeRes = &solana.PriorityFeeResult{
		PriorityFeeEstimate: 15000.4,
		PriorityFeeLevels: &solana.PriorityFeeLevels{
			Min: 0, Low: 2000, Medium: 15000, High: 12000, VeryHigh: 400000, UnsafeMax: 8000000,
		},
	}
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium})

	est := svc.GetPriorityFeeEstimate(context.Background(), []string{"acct"})
	assert.Equal(t, "api", est.Source)
	assert.Equal(t, uint64(2000), est.Low)
	assert.Equal(t, uint64(15000), est.Medium)
	assert.Equal(t, uint64(15000), est.High, "ladder must be non-decreasing")
	assert.Equal(t, uint64(400000), est.VeryHigh)
	assert.Equal(t, uint64(15001), est.Recommended)
}

func TestService_GetPriorityFeeEstimate_Fallback(t *testing.T) {
	premium := newFakeClient(premiumURL)
	premium.feeErr = errors.New("method not found")
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium})

	est := svc.GetPriorityFeeEstimate(context.Background(), nil)
	assert.Equal(t, FallbackFeeEstimate(), est)

	premium.feeErr = nil
	premium.feeRes = &solana.PriorityFeeResult{PriorityFeeEstimate: 10}
	est = svc.GetPriorityFeeEstimate(context.Background(), nil)
	assert.Equal(t, "fallback", est.Source, "missing levels must fall back")
}

func TestService_SendTransaction_RetriesThenSucceeds(t *testing.T) {
	premium := newFakeClient(premiumURL)
	premium.sendErr = func(call int) error {
		if call < 2 {
			return errors.New("blockhash not found")
		}
		return nil
	}
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium})

	tx, sig := signedTx(9)
	res, err := svc.SendTransaction(context.Background(), tx, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, sig, res.Signature)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, EndpointPremium, res.Endpoint)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, int64(77), res.Slot)
}

func TestService_SendTransaction_PremiumExhausted(t *testing.T) {
	premium := newFakeClient(premiumURL)
	premium.sendErr = func(int) error { return errors.New("node is behind") }
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium})

	tx, _ := signedTx(1)
	_, err := svc.SendTransaction(context.Background(), tx, SendOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecutionFailure)
	assert.Equal(t, 3, premium.sends(), "default is three attempts and no fallback from premium")
}

func TestService_SendTransaction_CustomFallsBackOnce(t *testing.T) {
	premium := newFakeClient(premiumURL)
	custom := newFakeClient("https://custom.example")
	custom.sendErr = func(int) error { return errors.New("custom down") }
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium, "https://custom.example": custom})
	require.NoError(t, svc.SetCustomRPC(context.Background(), "https://custom.example"))

	tx, _ := signedTx(2)
	res, err := svc.SendTransaction(context.Background(), tx, SendOptions{MaxRetries: 3})
	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, EndpointPremium, res.Endpoint)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 3, custom.sends())
	assert.Equal(t, 1, premium.sends())
}

func TestService_SendTransaction_FallbackFailsToo(t *testing.T) {
	premium := newFakeClient(premiumURL)
	premium.sendErr = func(int) error { return errors.New("premium down") }
	custom := newFakeClient("https://custom.example")
	custom.sendErr = func(int) error { return errors.New("custom down") }
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium, "https://custom.example": custom})
	require.NoError(t, svc.SetCustomRPC(context.Background(), "https://custom.example"))

	tx, _ := signedTx(3)
	_, err := svc.SendTransaction(context.Background(), tx, SendOptions{MaxRetries: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecutionFailure)
	assert.Equal(t, 2, custom.sends())
	assert.Equal(t, 1, premium.sends(), "exactly one premium fallback attempt")
}

func TestService_SendTransaction_OnChainFailureNotRetried(t *testing.T) {
	premium := newFakeClient(premiumURL)
	premium.txErr = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium})

	tx, _ := signedTx(4)
	_, err := svc.SendTransaction(context.Background(), tx, SendOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Equal(t, 1, premium.sends())
}

func TestService_SendTransaction_Unsigned(t *testing.T) {
	svc := newTestService(t, map[string]*fakeClient{})
	tx, _ := signedTx(0)

	_, err := svc.SendTransaction(context.Background(), tx, SendOptions{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_ClassifyLatency(t *testing.T) {
	svc := newTestService(t, map[string]*fakeClient{})

	assert.Equal(t, Healthy, svc.ClassifyLatency(100*time.Millisecond))
	assert.Equal(t, Healthy, svc.ClassifyLatency(1999*time.Millisecond))
	assert.Equal(t, Degraded, svc.ClassifyLatency(2*time.Second))
	assert.Equal(t, Degraded, svc.ClassifyLatency(4999*time.Millisecond))
	assert.Equal(t, Unhealthy, svc.ClassifyLatency(5*time.Second))
}

func TestService_HealthCheck(t *testing.T) {
	premium := newFakeClient(premiumURL)
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium})

	status := svc.HealthCheck(context.Background())
	assert.Equal(t, Healthy, status.Status)
	assert.Equal(t, int64(1000), status.Slot)
	assert.NotContains(t, status.Endpoint.URL, "secret", "api key must be redacted")
	assert.Empty(t, status.Note)

	premium.healthErr = errors.New("node unhealthy: behind by 120 slots")
	status = svc.HealthCheck(context.Background())
	assert.Equal(t, Degraded, status.Status)
	assert.Contains(t, status.Note, "behind")
	assert.Empty(t, status.Error)

	premium.slotErr = errors.New("timeout")
	status = svc.HealthCheck(context.Background())
	assert.Equal(t, Unhealthy, status.Status)
	assert.NotEmpty(t, status.Error)
}

func TestService_Balance(t *testing.T) {
	svc := newTestService(t, map[string]*fakeClient{})

	bal, err := svc.Balance(context.Background(), solana.WrappedSOLMint)
	require.NoError(t, err)
	assert.Equal(t, "1.5", bal.String())

	_, err = svc.Balance(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPremiumURL(t *testing.T) {
	assert.Equal(t, "https://rpc.example/?api-key=k", PremiumURL("https://rpc.example/", "k"))
	assert.Equal(t, "https://rpc.example/?x=1&api-key=k", PremiumURL("https://rpc.example/?x=1", "k"))
	assert.Equal(t, "https://rpc.example", PremiumURL("https://rpc.example", ""))
}

func TestSOLConversions(t *testing.T) {
	assert.Equal(t, "0.000000001", LamportsToSOL(1).String())
	sol := decimal.RequireFromString("0.0123456789")
	assert.Equal(t, uint64(12_345_678), SOLToLamports(sol))
}

func TestService_ChainReaderFollowsActiveEndpoint(t *testing.T) {
	premium := newFakeClient(premiumURL)
	custom := newFakeClient("https://custom.example")
	svc := newTestService(t, map[string]*fakeClient{premiumURL: premium, "https://custom.example": custom})
	reader := svc.ChainReader()

	_, err := reader.GetAccountInfo(context.Background(), solana.WrappedSOLMint)
	require.NoError(t, err)
	assert.Equal(t, 1, premium.CallCount("getAccountInfo"))

	require.NoError(t, svc.SetCustomRPC(context.Background(), "https://custom.example"))
	_, err = reader.GetTokenSupply(context.Background(), solana.WrappedSOLMint)
	assert.Error(t, err, "custom stub has no supply")
	_, err = reader.GetAccountInfo(context.Background(), solana.WrappedSOLMint)
	require.NoError(t, err)
	assert.Equal(t, 1, custom.CallCount("getAccountInfo"))
	assert.Equal(t, 1, custom.CallCount("getTokenSupply"))
	assert.Equal(t, 1, premium.CallCount("getAccountInfo"))

	require.NoError(t, svc.SetCustomRPC(context.Background(), ""))
	_, err = reader.GetAccountInfo(context.Background(), solana.WrappedSOLMint)
	require.NoError(t, err)
	assert.Equal(t, 2, premium.CallCount("getAccountInfo"))
}

type fakeWatcher struct {
	mu     sync.Mutex
	waits  int
	closed bool
}

func (w *fakeWatcher) WaitForSignature(_ context.Context, signature, _ string) (*solana.SignatureNotification, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waits++
	return &solana.SignatureNotification{Signature: signature, Slot: 88}, nil
}

func (w *fakeWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWatcher) state() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.waits, w.closed
}

func TestService_WatcherFollowsActiveEndpoint(t *testing.T) {
	clients := map[string]*fakeClient{
		premiumURL:               newFakeClient(premiumURL),
		"https://custom.example": newFakeClient("https://custom.example"),
	}
	watchers := map[string]*fakeWatcher{}
	svc, err := New(Options{
		Config: Config{PremiumURL: premiumURL, ConfirmTimeout: time.Second, ProbeTimeout: time.Second},
		Dial:   func(endpoint string) Client { return clients[endpoint] },
		DialWatcher: func(endpoint string) solana.SignatureWatcher {
			w := &fakeWatcher{}
			watchers[endpoint] = w
			return w
		},
	})
	require.NoError(t, err)
	require.Contains(t, watchers, premiumURL)

	require.NoError(t, svc.SetCustomRPC(context.Background(), "https://custom.example"))
	custom := watchers["https://custom.example"]
	require.NotNil(t, custom)

	tx, _ := signedTx(4)
	res, err := svc.SendTransaction(context.Background(), tx, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(88), res.Slot)

	waits, closed := custom.state()
	assert.Equal(t, 1, waits)
	assert.False(t, closed)
	premiumWaits, _ := watchers[premiumURL].state()
	assert.Zero(t, premiumWaits)

	require.NoError(t, svc.SetCustomRPC(context.Background(), ""))
	_, closed = custom.state()
	assert.True(t, closed, "replaced custom watcher is closed")

	require.NoError(t, svc.Close())
	_, closed = watchers[premiumURL].state()
	assert.True(t, closed)
}
