package service

import (
	"lan_messenger/internal/config"
	"lan_messenger/internal/repository"
	"lan_messenger/pkg/logger"
)

type Services struct {
	Auth      AuthService
	Chat      ChatService
	Media     MediaService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) (*Services, error) {
	media, err := NewMediaService(cfg.Storage.DataDir, cfg.Storage.MaxUploadSize, log)
	if err != nil {
		return nil, err
	}

	return &Services{
		Auth:      NewAuthService(repos.User, log),
		Chat:      NewChatService(repos.Message, media, log),
		Media:     media,
		RateLimit: NewRateLimitService(repos.RateLimit, cfg.RateLimit, log),
	}, nil
}
