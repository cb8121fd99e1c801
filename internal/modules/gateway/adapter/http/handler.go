package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/frankieli/roulette_table/internal/modules/gateway/session"
	"github.com/frankieli/roulette_table/internal/modules/gateway/usecase"
	"github.com/frankieli/roulette_table/internal/modules/gateway/ws"
	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// Handler handles HTTP/WebSocket requests
type Handler struct {
	baseCtx  context.Context
	useCase  *usecase.GatewayUseCase
	manager  *ws.Manager
	sessions session.Config
}

// NewHandler creates a new HTTP handler. Sessions are bound to baseCtx and
// end when it is cancelled.
func NewHandler(baseCtx context.Context, useCase *usecase.GatewayUseCase, manager *ws.Manager, sessions session.Config) *Handler {
	return &Handler{
		baseCtx:  baseCtx,
		useCase:  useCase,
		manager:  manager,
		sessions: sessions,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// RegisterRoutes mounts the WebSocket endpoint and the read-only API
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", func(c *gin.Context) {
		h.HandleWebSocket(c.Writer, c.Request)
	})
	r.GET("/healthz", h.health)

	api := r.Group("/api")
	{
		api.GET("/table", h.table)
		api.GET("/players/:id", h.player)
		api.GET("/rounds", h.rounds)
	}
}

// HandleWebSocket upgrades the request and runs the player's session on
// this goroutine until it ends.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WebSocketContext(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := h.manager.Register(conn)
	ctx = logger.WithSession(ctx, client.ID)
	logger.Info(ctx).Str("remote_addr", r.RemoteAddr).Msg("WebSocket connected")

	go client.WritePump()
	go client.ReadPump()

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(h.baseCtx, cancel)
	defer stop()

	err = session.New(client, h.useCase, h.sessions).Run(sessCtx)

	reason := ws.ReasonLeave
	switch {
	case errors.Is(err, domain.ErrSessionActive):
		reason = ws.ReasonSessionActive
	case errors.Is(err, session.ErrLoginExhausted):
		reason = ws.ReasonLoginExhausted
	case errors.Is(err, session.ErrIdle):
		reason = ws.ReasonIdle
	case errors.Is(err, session.ErrClosed):
		reason = ws.ReasonReadError
	case errors.Is(err, context.Canceled):
		reason = ws.ReasonShutdown
	case errors.Is(err, ws.ErrConnectionClosed), errors.Is(err, context.DeadlineExceeded):
		reason = ws.ReasonWriteError
	}
	client.Flush(time.Second)
	client.CloseWithReason(reason, nil)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) table(c *gin.Context) {
	state := h.useCase.Table().Table()
	c.JSON(http.StatusOK, gin.H{
		"round_id":    state.RoundID,
		"phase":       state.Phase,
		"total_bets":  state.TotalBets,
		"online":      state.Online,
		"players":     state.Players,
		"connections": h.manager.Len(),
	})
}

func (h *Handler) player(c *gin.Context) {
	info, err := h.useCase.Table().Player(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": string(domain.ReasonOf(err))})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) rounds(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}

	records, err := h.useCase.Table().RecentRounds(c.Request.Context(), limit)
	if err != nil {
		logger.Error(c.Request.Context()).Err(err).Msg("failed to load history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": string(domain.ReasonInternal)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": records})
}
