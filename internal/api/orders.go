package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"solana-token-sniper/internal/order"
)

func (s *server) createOrder(c *gin.Context) {
	var req order.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	o, err := s.Orders.Create(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *server) getOrder(c *gin.Context) {
	o, err := s.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *server) listOrders(c *gin.Context) {
	list, err := s.Orders.ListByUser(c.Request.Context(), c.Query("user"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

func (s *server) amendOrder(c *gin.Context) {
	var req order.AmendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	o, err := s.Orders.Amend(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *server) listExecutions(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.Orders.Get(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.Orders.Executions(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": list, "count": len(list)})
}

func (s *server) cancelOrder(c *gin.Context) {
	o, err := s.Orders.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *server) confirmEntry(c *gin.Context) {
	var fill order.EntryFill
	if err := c.ShouldBindJSON(&fill); err != nil {
		badRequest(c, err)
		return
	}
	o, e, err := s.Orders.ConfirmEntry(c.Request.Context(), c.Param("id"), fill)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o, "execution": e})
}

func (s *server) confirmExit(c *gin.Context) {
	var fill order.ExitFill
	if err := c.ShouldBindJSON(&fill); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.Orders.ConfirmExit(c.Request.Context(), c.Param("id"), fill)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
