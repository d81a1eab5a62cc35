package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/solana"
)

func (s *server) rpcHealth(c *gin.Context) {
	status := s.RPC.HealthCheck(c.Request.Context())
	code := http.StatusOK
	if status.Error != "" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

type customRPCRequest struct {
	URL string `json:"url"`
}

// setCustomRPC activates a custom endpoint, or clears it when url is empty.
// A failed probe leaves the previous endpoint active.
func (s *server) setCustomRPC(c *gin.Context) {
	var req customRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.RPC.SetCustomRPC(c.Request.Context(), strings.TrimSpace(req.URL)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.RPC.HealthCheck(c.Request.Context()))
}

func (s *server) priorityFees(c *gin.Context) {
	var accounts []string
	for _, a := range strings.Split(c.Query("accounts"), ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if err := solana.ValidateAddress(a); err != nil {
			s.fail(c, err)
			return
		}
		accounts = append(accounts, a)
	}
	c.JSON(http.StatusOK, s.RPC.GetPriorityFeeEstimate(c.Request.Context(), accounts))
}

func (s *server) balance(c *gin.Context) {
	wallet := c.Param("wallet")
	sol, err := s.RPC.Balance(c.Request.Context(), wallet)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "balanceSol": sol})
}

func (s *server) safetyCheck(c *gin.Context) {
	chain := domain.Chain(c.DefaultQuery("chain", string(domain.ChainSolana)))
	if !chain.IsValid() {
		s.fail(c, domain.Validationf("unsupported chain %q", chain))
		return
	}
	report, err := s.Safety.RunFullSafetyCheck(c.Request.Context(), c.Param("token"), chain, s.SafetyConfig)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *server) sweep(c *gin.Context) {
	res, err := s.Sweeper.RunSweepNow(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *server) scan(c *gin.Context) {
	candidates, err := s.Scanner.Scan(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "count": len(candidates)})
}

type swapRequest struct {
	// AmountTokens is the base-unit amount to sell; required for exits.
	AmountTokens uint64 `json:"amountTokens"`
}

type swapResponse struct {
	OrderID              string               `json:"orderId"`
	Side                 string               `json:"side"`
	Transaction          string               `json:"transaction"` // unsigned, base64
	LastValidBlockHeight uint64               `json:"lastValidBlockHeight"`
	PriorityLevel        domain.PriorityLevel `json:"priorityLevel"`
	PriorityFee          uint64               `json:"priorityFee"`
	InAmount             uint64               `json:"inAmount"`
	OutAmount            uint64               `json:"outAmount"`
	PriceImpactPct       float64              `json:"priceImpactPct"`
	Dex                  string               `json:"dex,omitempty"`
}

// buildSwap builds the unsigned transaction for an order that awaits a fill.
func (s *server) buildSwap(c *gin.Context) {
	var req swapRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	o, err := s.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var (
		quote *domain.Quote
		side  string
	)
	switch o.Status {
	case domain.OrderStatusReadyToExecute:
		side = "buy"
		quote, err = s.Swaps.GetBuyQuote(ctx, o.TokenAddress, decimal.NewFromFloat(o.BuyAmountNative))
	case domain.OrderStatusReadyToExit, domain.OrderStatusReadyToStop:
		side = "sell"
		if req.AmountTokens == 0 {
			s.fail(c, domain.Validationf("amountTokens is required to sell"))
			return
		}
		quote, err = s.Swaps.GetSellQuote(ctx, o.TokenAddress, req.AmountTokens)
	default:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "order is not awaiting a fill: " + string(o.Status)})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	built, err := s.Swaps.BuildSwapTransactionWithRetry(ctx, quote, o.WalletAddress)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, swapResponse{
		OrderID:              o.ID,
		Side:                 side,
		Transaction:          built.Base64,
		LastValidBlockHeight: built.LastValidBlockHeight,
		PriorityLevel:        built.PriorityLevel,
		PriorityFee:          built.PriorityFee,
		InAmount:             built.Quote.InAmount,
		OutAmount:            built.Quote.OutAmount,
		PriceImpactPct:       built.Quote.PriceImpactPct,
		Dex:                  built.Quote.Dex(),
	})
}

type sendRequest struct {
	SignedTransaction string `json:"signedTransaction" binding:"required"`
}

func (s *server) sendTransaction(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.Swaps.ExecuteSwap(c.Request.Context(), req.SignedTransaction)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
