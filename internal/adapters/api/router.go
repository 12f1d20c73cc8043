// Package api expone en HTTP (solo lectura) las señales, los paper trades,
// el resumen de performance y las métricas de Prometheus.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
	"github.com/alejandrodnm/flowscan/internal/metrics"
	"github.com/alejandrodnm/flowscan/internal/ports"
	"github.com/gin-gonic/gin"
)

// Reader es lo que la API necesita del almacenamiento.
type Reader interface {
	ports.SignalStorage
	ports.TradeStorage
	ports.CycleStorage
}

type listParams struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

type tradeParams struct {
	Status string `form:"status" binding:"omitempty,oneof=open closed expired"`
}

type handler struct {
	store Reader
}

// NewRouter builds the gin engine with every read-only route.
func NewRouter(store Reader) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	h := &handler{store: store}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	g := r.Group("/api")
	g.GET("/signals", h.listSignals)
	g.GET("/signals/:id", h.getSignal)
	g.GET("/trades", h.listTrades)
	g.GET("/trades/:id", h.getTrade)
	g.GET("/performance", h.performance)
	g.GET("/cycles", h.listCycles)

	return r
}

func (h *handler) listSignals(c *gin.Context) {
	var p listParams
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	signals, err := h.store.RecentSignals(c.Request.Context(), p.Limit)
	if err != nil {
		internalError(c, err)
		return
	}
	out := make([]signalJSON, 0, len(signals))
	for _, s := range signals {
		out = append(out, toSignalJSON(s))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getSignal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sig, err := h.store.GetSignal(c.Request.Context(), id)
	if err != nil {
		lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSignalJSON(sig))
}

func (h *handler) listTrades(c *gin.Context) {
	var p tradeParams
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trades, err := h.store.ListTrades(c.Request.Context(), domain.TradeStatus(p.Status))
	if err != nil {
		internalError(c, err)
		return
	}
	out := make([]tradeJSON, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeJSON(t))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getTrade(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	trade, err := h.store.GetTrade(c.Request.Context(), id)
	if err != nil {
		lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTradeJSON(trade))
}

func (h *handler) performance(c *gin.Context) {
	trades, err := h.store.ListTrades(c.Request.Context(), "")
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPerformanceJSON(domain.Summarize(trades)))
}

func (h *handler) listCycles(c *gin.Context) {
	var p listParams
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cycles, err := h.store.RecentCycles(c.Request.Context(), p.Limit)
	if err != nil {
		internalError(c, err)
		return
	}
	out := make([]cycleJSON, 0, len(cycles))
	for _, cy := range cycles {
		out = append(out, toCycleJSON(cy))
	}
	c.JSON(http.StatusOK, out)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func lookupError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	internalError(c, err)
}

func internalError(c *gin.Context, err error) {
	slog.Error("api request failed", "path", c.FullPath(), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// requestLogger sustituye a gin.Logger para que las peticiones salgan por slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}
