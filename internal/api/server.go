// Package api exposes the order, safety and RPC services over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/order"
	"solana-token-sniper/internal/rpcservice"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/scanner"
	"solana-token-sniper/internal/worker"
)

// RPC is the endpoint management surface. *rpcservice.Service implements it.
type RPC interface {
	HealthCheck(ctx context.Context) rpcservice.HealthStatus
	SetCustomRPC(ctx context.Context, endpoint string) error
	GetPriorityFeeEstimate(ctx context.Context, accountKeys []string) domain.PriorityFeeEstimate
	Balance(ctx context.Context, wallet string) (decimal.Decimal, error)
}

// Sweeper runs a monitor sweep on demand and reports scheduler activity.
// *worker.Worker implements it.
type Sweeper interface {
	RunSweepNow(ctx context.Context) (*order.SweepResult, error)
	Status() worker.Status
}

// Swaps builds and submits swap transactions. *execution.Pipeline implements it.
type Swaps interface {
	GetBuyQuote(ctx context.Context, token string, amountSOL decimal.Decimal) (*domain.Quote, error)
	GetSellQuote(ctx context.Context, token string, amountTokens uint64) (*domain.Quote, error)
	BuildSwapTransactionWithRetry(ctx context.Context, quote *domain.Quote, signer string) (*execution.BuiltTransaction, error)
	ExecuteSwap(ctx context.Context, signedTx string) (*rpcservice.SendResult, error)
}

// Scanner runs one discovery pass.
type Scanner interface {
	Scan(ctx context.Context) ([]scanner.Candidate, error)
}

var (
	_ RPC     = (*rpcservice.Service)(nil)
	_ Swaps   = (*execution.Pipeline)(nil)
	_ Scanner = (*scanner.Scanner)(nil)
	_ Sweeper = (*worker.Worker)(nil)
)

// Deps wires the handlers. Orders is required; routes backed by a nil
// dependency are not registered.
type Deps struct {
	Orders       *order.Service
	RPC          RPC
	Safety       order.SafetyChecker
	SafetyConfig safety.Config
	Sweeper      Sweeper
	Swaps        Swaps
	Scanner      Scanner
	Log          *logrus.Entry
}

type server struct {
	Deps
	log *logrus.Entry
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = logrus.WithField("component", "api")
	}
	s := &server{Deps: d, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	orders := r.Group("/orders")
	orders.POST("", s.createOrder)
	orders.GET("", s.listOrders)
	orders.GET("/:id", s.getOrder)
	orders.PATCH("/:id", s.amendOrder)
	orders.GET("/:id/executions", s.listExecutions)
	orders.POST("/:id/cancel", s.cancelOrder)
	orders.POST("/:id/entry", s.confirmEntry)
	orders.POST("/:id/exit", s.confirmExit)

	if d.RPC != nil {
		rpc := r.Group("/rpc")
		rpc.GET("/health", s.rpcHealth)
		rpc.PUT("/custom", s.setCustomRPC)
		rpc.GET("/fees", s.priorityFees)
		rpc.GET("/balance/:wallet", s.balance)
	}
	if d.Safety != nil {
		r.GET("/safety/:token", s.safetyCheck)
	}
	if d.Sweeper != nil {
		r.POST("/sweep", s.sweep)
		r.GET("/worker/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.Sweeper.Status())
		})
	}
	if d.Swaps != nil {
		orders.POST("/:id/swap", s.buildSwap)
		r.POST("/tx/send", s.sendTransaction)
	}
	if d.Scanner != nil {
		r.POST("/scan", s.scan)
	}
	return r
}

func (s *server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		observability.RecordHTTPRequest(route, strconv.Itoa(status))

		entry := s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"route":    route,
			"status":   status,
			"duration": time.Since(start).String(),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}
