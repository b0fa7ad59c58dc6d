package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Handlers serves the read-only REST side of the relay.
type Handlers struct {
	Orch         *orch.Orchestrator
	HistoryLimit int
}

type UsersResponse struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

type HistoryRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

type MessageDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Time string `json:"time"`
}

type HistoryResponse struct {
	Messages []MessageDTO `json:"messages"`
}

func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/users", h.handlerUsers)
	r.GET("/messages", h.handlerMessages)
}

func (h *Handlers) handlerUsers(c *gin.Context) {
	names := lo.Map(h.Orch.OnlineUsers(), func(n domain.DisplayName, _ int) string { return string(n) })
	c.JSON(http.StatusOK, UsersResponse{Users: names, Count: len(names)})
}

func (h *Handlers) handlerMessages(c *gin.Context) {
	var req HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if req.Limit == 0 {
		req.Limit = h.HistoryLimit
	}

	envs, err := h.Orch.History(c.Request.Context(), req.Limit)
	if errors.Is(err, orch.ErrNoStore) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "transport.http").Msg("history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Messages: lo.Map(envs, func(e domain.Envelope, _ int) MessageDTO {
			return MessageDTO{From: string(e.From), To: string(e.To), Text: e.Text, Time: e.Time}
		}),
	})
}

// Healthz reports liveness plus the current connection counts.
func (h *Handlers) Healthz(c *gin.Context) {
	stats := h.Orch.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": stats.Connections,
		"online":      stats.Online,
	})
}
