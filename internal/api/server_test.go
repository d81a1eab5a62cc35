package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/order"
	"solana-token-sniper/internal/rpcservice"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/scanner"
	"solana-token-sniper/internal/storage/memory"
	"solana-token-sniper/internal/worker"
)

const (
	testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testToken  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRPC struct {
	setErr     error
	custom     string
	accounts   []string
	balanceErr error
}

func (f *fakeRPC) HealthCheck(context.Context) rpcservice.HealthStatus {
	kind := rpcservice.EndpointPremium
	if f.custom != "" {
		kind = rpcservice.EndpointCustom
	}
	return rpcservice.HealthStatus{Endpoint: rpcservice.Endpoint{Kind: kind}, Status: rpcservice.Healthy, Slot: 42}
}

func (f *fakeRPC) SetCustomRPC(_ context.Context, endpoint string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.custom = endpoint
	return nil
}

func (f *fakeRPC) Balance(context.Context, string) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return decimal.RequireFromString("1.5"), nil
}

func (f *fakeRPC) GetPriorityFeeEstimate(_ context.Context, accounts []string) domain.PriorityFeeEstimate {
	f.accounts = accounts
	return domain.PriorityFeeEstimate{Medium: 5000, Recommended: 5000, Source: "fallback"}
}

type fakeSafety struct {
	report *domain.SafetyReport
	err    error
}

func (f *fakeSafety) RunFullSafetyCheck(_ context.Context, token string, chain domain.Chain, _ safety.Config) (*domain.SafetyReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.report
	r.TokenAddress = token
	r.Chain = chain
	return &r, nil
}

type fakeSweeper struct {
	res *order.SweepResult
	err error
}

func (f *fakeSweeper) RunSweepNow(context.Context) (*order.SweepResult, error) {
	return f.res, f.err
}

func (f *fakeSweeper) Status() worker.Status {
	return worker.Status{Sweeps: 7, LastSweep: f.res}
}

type fakeSwaps struct {
	buyAmount  decimal.Decimal
	sellAmount uint64
	signer     string
	sent       string
}

func (f *fakeSwaps) GetBuyQuote(_ context.Context, token string, amount decimal.Decimal) (*domain.Quote, error) {
	f.buyAmount = amount
	return &domain.Quote{InputMint: "So11111111111111111111111111111111111111112", OutputMint: token, InAmount: 500_000_000, OutAmount: 1234}, nil
}

func (f *fakeSwaps) GetSellQuote(_ context.Context, token string, amount uint64) (*domain.Quote, error) {
	f.sellAmount = amount
	return &domain.Quote{InputMint: token, InAmount: amount, OutAmount: 700_000_000}, nil
}

func (f *fakeSwaps) BuildSwapTransactionWithRetry(_ context.Context, q *domain.Quote, signer string) (*execution.BuiltTransaction, error) {
	f.signer = signer
	return &execution.BuiltTransaction{Base64: "AQID", LastValidBlockHeight: 99, PriorityLevel: domain.PriorityMedium, PriorityFee: 5000, Quote: q}, nil
}

func (f *fakeSwaps) ExecuteSwap(_ context.Context, signedTx string) (*rpcservice.SendResult, error) {
	f.sent = signedTx
	return &rpcservice.SendResult{Signature: "sig", Endpoint: rpcservice.EndpointPremium, Attempts: 1}, nil
}

type fakeScanner struct{}

func (fakeScanner) Scan(context.Context) ([]scanner.Candidate, error) {
	return []scanner.Candidate{{Token: domain.Token{Address: testToken}, CompositeScore: 71.5}}, nil
}

type testEnv struct {
	router *gin.Engine
	orders *memory.OrderStore
	svc    *order.Service
	rpc    *fakeRPC
	safety *fakeSafety
	sweep  *fakeSweeper
	swaps  *fakeSwaps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		orders: memory.NewOrderStore(),
		rpc:    &fakeRPC{},
		safety: &fakeSafety{report: &domain.SafetyReport{SafetyScore: 85, SafetyGrade: domain.GradeA, PassesAllChecks: true}},
		sweep:  &fakeSweeper{res: &order.SweepResult{OrdersChecked: 3, OrdersExecuted: 1}},
		swaps:  &fakeSwaps{},
	}
	env.svc = order.NewService(env.orders, memory.NewExecutionStore(), order.DefaultConfig(), order.WithSafetyChecker(env.safety))
	env.router = NewRouter(Deps{
		Orders:       env.svc,
		RPC:          env.rpc,
		Safety:       env.safety,
		SafetyConfig: safety.DefaultConfig(),
		Sweeper:      env.sweep,
		Swaps:        env.swaps,
		Scanner:      fakeScanner{},
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createBody() map[string]any {
	return map[string]any{
		"userId":          "user1",
		"walletAddress":   testWallet,
		"tokenAddress":    testToken,
		"orderType":       "limit",
		"entryPrice":      1.0,
		"exitPrice":       1.5,
		"stopLoss":        0.8,
		"buyAmountNative": 0.5,
	}
}

func (e *testEnv) createOrder(t *testing.T) domain.Order {
	t.Helper()
	w := e.do(t, http.MethodPost, "/orders", createBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.Order](t, w)
}

func (e *testEnv) setStatus(t *testing.T, id string, from, to domain.OrderStatus) {
	t.Helper()
	_, err := e.orders.CompareAndSetStatus(context.Background(), id, from, to, nil)
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndGetOrder(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, testToken, o.TokenAddress)

	w := env.do(t, http.MethodGet, "/orders/"+o.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[domain.Order](t, w)
	assert.Equal(t, o.ID, got.ID)

	w = env.do(t, http.MethodGet, "/orders?user=user1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Orders []domain.Order `json:"orders"`
		Count  int            `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)
}

func TestCreateOrder_Errors(t *testing.T) {
	env := newTestEnv(t)

	body := createBody()
	body["entryPrice"] = -1
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/orders", body).Code)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.safety.report = &domain.SafetyReport{SafetyScore: 10, Risks: []string{safety.RiskHoneypot}}
	w = env.do(t, http.MethodPost, "/orders", createBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), safety.RiskHoneypot)
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/orders/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/orders/missing/cancel", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/orders/missing/executions", nil).Code)
}

func TestListOrders_RequiresUser(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/orders", nil).Code)
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)

	w := env.do(t, http.MethodPost, "/orders/"+o.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.OrderStatusCancelled, decode[domain.Order](t, w).Status)

	// Idempotent.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/orders/"+o.ID+"/cancel", nil).Code)

	// Fills are refused once cancelled.
	w = env.do(t, http.MethodPost, "/orders/"+o.ID+"/entry", order.EntryFill{Price: 1, AmountNative: 0.5, TxRef: "sig"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAmendOrder(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)

	w := env.do(t, http.MethodPatch, "/orders/"+o.ID, map[string]any{"exitPrice": 2.0, "stopLoss": 0.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[domain.Order](t, w)
	assert.Equal(t, 2.0, *got.ExitPrice)
	assert.Equal(t, 0.5, *got.StopLoss)

	w = env.do(t, http.MethodPatch, "/orders/"+o.ID, map[string]any{"exitPrice": 0.1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntryExitRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)

	w := env.do(t, http.MethodPost, "/orders/"+o.ID+"/entry", order.EntryFill{Price: 1, AmountNative: 0.5, TxRef: "in"})
	assert.Equal(t, http.StatusConflict, w.Code, "entry requires READY_TO_EXECUTE")

	env.setStatus(t, o.ID, domain.OrderStatusPending, domain.OrderStatusReadyToExecute)
	w = env.do(t, http.MethodPost, "/orders/"+o.ID+"/entry", order.EntryFill{Price: 1, AmountNative: 0.5, TxRef: "in"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env.setStatus(t, o.ID, domain.OrderStatusFilledEntry, domain.OrderStatusReadyToExit)
	w = env.do(t, http.MethodPost, "/orders/"+o.ID+"/exit", order.ExitFill{Price: 1.6, AmountNative: 0.8, TxRef: "out"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[order.ExitResult](t, w)
	assert.Equal(t, domain.OrderStatusFilledExit, res.Order.Status)
	require.NotNil(t, res.Execution.PnL)
	assert.InDelta(t, 60, res.Execution.PnL.Percent, 1e-9)

	w = env.do(t, http.MethodGet, "/orders/"+o.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/orders/"+o.ID+"/cancel", nil).Code)
}

func TestRPCRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/rpc/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slot":42`)

	w = env.do(t, http.MethodPut, "/rpc/custom", map[string]string{"url": "https://my-node.example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://my-node.example.com", env.rpc.custom)
	assert.Contains(t, w.Body.String(), `"kind":"custom"`)

	env.rpc.setErr = domain.Upstream("probe custom rpc", errors.New("timeout"))
	w = env.do(t, http.MethodPut, "/rpc/custom", map[string]string{"url": "https://dead.example.com"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "https://my-node.example.com", env.rpc.custom)

	env.rpc.setErr = domain.Validationf("endpoint must use http or https")
	w = env.do(t, http.MethodPut, "/rpc/custom", map[string]string{"url": "ftp://x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/rpc/fees?accounts="+testToken+","+testWallet, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{testToken, testWallet}, env.rpc.accounts)

	w = env.do(t, http.MethodGet, "/rpc/fees?accounts=bogus!", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/rpc/balance/"+testWallet, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balanceSol":"1.5"`)

	env.rpc.balanceErr = domain.Validationf("invalid address")
	w = env.do(t, http.MethodGet, "/rpc/balance/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSafetyRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/safety/"+testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[domain.SafetyReport](t, w)
	assert.Equal(t, testToken, report.TokenAddress)
	assert.Equal(t, domain.ChainSolana, report.Chain)
	assert.Equal(t, domain.GradeA, report.SafetyGrade)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/safety/"+testToken+"?chain=dogechain", nil).Code)

	env.safety.err = domain.Upstream("rpc", errors.New("down"))
	assert.Equal(t, http.StatusBadGateway, env.do(t, http.MethodGet, "/safety/"+testToken, nil).Code)
}

func TestSweepRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[order.SweepResult](t, w)
	assert.Equal(t, 3, res.OrdersChecked)

	env.sweep.err = worker.ErrSweepRunning
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/sweep", nil).Code)

	w = env.do(t, http.MethodGet, "/worker/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[worker.Status](t, w)
	assert.Equal(t, 7, st.Sweeps)
	require.NotNil(t, st.LastSweep)
	assert.Equal(t, 3, st.LastSweep.OrdersChecked)
}

func TestBuildSwap(t *testing.T) {
	env := newTestEnv(t)
	o := env.createOrder(t)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/orders/"+o.ID+"/swap", nil).Code)

	env.setStatus(t, o.ID, domain.OrderStatusPending, domain.OrderStatusReadyToExecute)
	w := env.do(t, http.MethodPost, "/orders/"+o.ID+"/swap", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[swapResponse](t, w)
	assert.Equal(t, "buy", resp.Side)
	assert.Equal(t, "AQID", resp.Transaction)
	assert.Equal(t, testWallet, env.swaps.signer)
	assert.True(t, env.swaps.buyAmount.Equal(decimal.RequireFromString("0.5")))

	env.setStatus(t, o.ID, domain.OrderStatusReadyToExecute, domain.OrderStatusReadyToStop)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/orders/"+o.ID+"/swap", map[string]any{}).Code)

	w = env.do(t, http.MethodPost, "/orders/"+o.ID+"/swap", map[string]any{"amountTokens": 1000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sell", decode[swapResponse](t, w).Side)
	assert.Equal(t, uint64(1000), env.swaps.sellAmount)
}

func TestSendTransaction(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/tx/send", map[string]any{}).Code)

	w := env.do(t, http.MethodPost, "/tx/send", map[string]string{"signedTransaction": "AQID"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AQID", env.swaps.sent)
	assert.Contains(t, w.Body.String(), `"signature":"sig"`)
}

func TestScanRoute(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/scan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"compositeScore":71.5`)
}

func TestOptionalRoutesAbsent(t *testing.T) {
	svc := order.NewService(memory.NewOrderStore(), memory.NewExecutionStore(), order.DefaultConfig())
	r := NewRouter(Deps{Orders: svc})

	for _, path := range []string{"/rpc/health", "/safety/" + testToken} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Validationf("bad"), http.StatusBadRequest},
		{order.ErrTerminal, http.StatusConflict},
		{order.ErrInvalidTransition, http.StatusConflict},
		{domain.ExecutionFailed("build swap", errors.New("x")), http.StatusBadGateway},
		{domain.ErrRateLimited, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
