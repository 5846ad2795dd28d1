package handler

import (
	"lan_messenger/internal/config"
	"lan_messenger/internal/hub"
	"lan_messenger/internal/repository"
	"lan_messenger/internal/service"
	"lan_messenger/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	WebSocket *WebSocketHandler
	Upload    *UploadHandler
	Media     *MediaHandler
}

func NewHandlers(services *service.Services, repos *repository.Repositories, h *hub.Hub, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(h, cfg, log),
		WebSocket: NewWebSocketHandler(h, services.Auth, services.Chat, log),
		Upload:    NewUploadHandler(services.Media, cfg.Storage.MaxUploadSize, log),
		Media:     NewMediaHandler(services.Media, repos.Message, log),
	}
}
