package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lan_messenger/internal/config"
	"lan_messenger/internal/hub"
	"lan_messenger/pkg/logger"
)

type HealthHandler struct {
	hub       *hub.Hub
	cfg       *config.Config
	startedAt time.Time
	log       logger.Logger
}

func NewHealthHandler(h *hub.Hub, cfg *config.Config, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		hub:       h,
		cfg:       cfg,
		startedAt: time.Now(),
		log:       log,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"online_users":   len(h.hub.OnlineUsers()),
	})
}

// ServerInfo tells LAN clients where to point their websocket.
func (h *HealthHandler) ServerInfo(c *gin.Context) {
	host := config.GetLocalIP()
	port := h.cfg.Server.Port

	c.JSON(http.StatusOK, gin.H{
		"host":   host,
		"port":   port,
		"ws_url": fmt.Sprintf("ws://%s:%d/ws", host, port),
	})
}
