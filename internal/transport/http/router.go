package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/stock-db-writer/internal/ports"
	"github.com/Gunvolt24/stock-db-writer/pkg/httpx"
)

// pinger — минимальный интерфейс проверки живости хранилища (pgxpool.Pool подходит).
type pinger interface {
	Ping(ctx context.Context) error
}

// Handler — служебные эндпоинты сервиса: health, metrics, состояние консьюмера.
type Handler struct {
	db            pinger
	consumerState func() string
	log           ports.Logger
}

func NewHandler(db pinger, consumerState func() string, log ports.Logger) *Handler {
	return &Handler{db: db, consumerState: consumerState, log: log}
}

// NewRouter — собирает служебный роутер. otelServiceName != "" включает otelgin.
func NewRouter(h *Handler, otelServiceName string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if otelServiceName != "" {
		r.Use(otelgin.Middleware(otelServiceName))
	}
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.RequestLogger(h.log))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/consumer", h.consumer)

	return r
}

// healthz — готовность сервиса: достаточно живого подключения к БД.
func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Errorf(c.Request.Context(), "healthz: db ping failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "db unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// consumer — текущее состояние консьюмера (connecting/consuming/draining/...).
func (h *Handler) consumer(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.consumerState()})
}
