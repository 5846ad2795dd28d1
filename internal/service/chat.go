package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lan_messenger/internal/domain"
	"lan_messenger/internal/repository"
	apperrors "lan_messenger/pkg/errors"
	"lan_messenger/pkg/logger"
)

// EditWindow is how long the author may rewrite a message's content.
const EditWindow = 10 * time.Minute

// ReadReceipt is one newly-updated read set, broadcast per message id.
type ReadReceipt struct {
	ID     string
	ReadBy []string
}

type ChatService interface {
	History(ctx context.Context) ([]*domain.Message, error)
	// Send persists a new message and resolves the reply preview when
	// reply_to is set. Media content keys are normalized first.
	Send(ctx context.Context, username, msgType, content string, replyTo *string, fileSize int64, originalName string) (*domain.Message, *domain.ReplyPreview, error)
	// Edit rewrites content iff the caller authored the message less
	// than EditWindow ago.
	Edit(ctx context.Context, username, id, content string) error
	// Delete removes the caller's messages among ids, media files
	// included, and reports which ids were actually deleted.
	Delete(ctx context.Context, username string, ids []string) ([]string, error)
	// MarkRead adds the caller to the read set of each message it did
	// not author, returning a receipt per message that changed.
	MarkRead(ctx context.Context, username string, ids []string) ([]ReadReceipt, error)
	// AddReaction and RemoveReaction are idempotent; both return the
	// full reaction map for the message, or nil when the id is unknown.
	AddReaction(ctx context.Context, username, id, emoji string) (map[string][]string, error)
	RemoveReaction(ctx context.Context, username, id, emoji string) (map[string][]string, error)
}

type chatService struct {
	messageRepo repository.MessageRepository
	media       MediaService
	log         logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, media MediaService, log logger.Logger) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		media:       media,
		log:         log,
	}
}

func (s *chatService) History(ctx context.Context) ([]*domain.Message, error) {
	return s.messageRepo.History(ctx)
}

func (s *chatService) Send(ctx context.Context, username, msgType, content string, replyTo *string, fileSize int64, originalName string) (*domain.Message, *domain.ReplyPreview, error) {
	if domain.IsMediaType(msgType) {
		content = s.media.NormalizeKey(content, msgType)
	}

	message := &domain.Message{
		ID:           uuid.NewString(),
		Username:     username,
		Type:         msgType,
		Content:      content,
		Timestamp:    time.Now(),
		ReplyTo:      replyTo,
		ReadBy:       []string{},
		Reactions:    map[string][]string{},
		FileSize:     fileSize,
		OriginalName: originalName,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, nil, err
	}

	var preview *domain.ReplyPreview
	if replyTo != nil && *replyTo != "" {
		// Weak reference: a deleted or unknown target just means no preview.
		target, err := s.messageRepo.GetByID(ctx, *replyTo)
		if err != nil {
			return nil, nil, err
		}
		if target != nil {
			preview = &domain.ReplyPreview{
				ID:   target.ID,
				User: target.Username,
				Msg:  target.Content,
				Type: target.Type,
			}
		}
	}

	s.log.Info("Message sent", "username", username, "type", msgType, "id", message.ID)
	return message, preview, nil
}

func (s *chatService) Edit(ctx context.Context, username, id, content string) error {
	message, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if message == nil {
		return apperrors.ErrMessageNotFound
	}
	if message.Username != username {
		return apperrors.ErrNotMessageOwner
	}
	if time.Since(message.Timestamp) >= EditWindow {
		return apperrors.ErrEditWindowExpired
	}

	if err := s.messageRepo.UpdateContent(ctx, id, content); err != nil {
		return err
	}

	s.log.Info("Message edited", "username", username, "id", id)
	return nil
}

func (s *chatService) Delete(ctx context.Context, username string, ids []string) ([]string, error) {
	var deleted []string
	for _, id := range ids {
		message, err := s.messageRepo.GetByID(ctx, id)
		if err != nil {
			return deleted, err
		}
		if message == nil || message.Username != username {
			continue
		}

		removed, err := s.messageRepo.Delete(ctx, id)
		if err != nil {
			return deleted, err
		}
		if removed == nil {
			continue
		}

		if domain.IsMediaType(removed.Type) {
			s.media.Remove(removed.Content, removed.Type)
		}
		deleted = append(deleted, id)
	}

	if len(deleted) > 0 {
		s.log.Info("Messages deleted", "username", username, "count", len(deleted))
	}
	return deleted, nil
}

func (s *chatService) MarkRead(ctx context.Context, username string, ids []string) ([]ReadReceipt, error) {
	var receipts []ReadReceipt
	for _, id := range ids {
		message, err := s.messageRepo.GetByID(ctx, id)
		if err != nil {
			return receipts, err
		}
		if message == nil || message.Username == username {
			continue
		}

		if contains(message.ReadBy, username) {
			continue
		}

		readBy := append(append([]string{}, message.ReadBy...), username)
		if err := s.messageRepo.SetReadBy(ctx, id, readBy); err != nil {
			return receipts, err
		}
		receipts = append(receipts, ReadReceipt{ID: id, ReadBy: readBy})
	}
	return receipts, nil
}

func (s *chatService) AddReaction(ctx context.Context, username, id, emoji string) (map[string][]string, error) {
	message, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, nil
	}

	reactions := cloneReactions(message.Reactions)
	if !contains(reactions[emoji], username) {
		reactions[emoji] = append(reactions[emoji], username)
	}

	if err := s.messageRepo.SetReactions(ctx, id, reactions); err != nil {
		return nil, err
	}

	s.log.Info("Reaction added", "username", username, "emoji", emoji, "id", id)
	return reactions, nil
}

func (s *chatService) RemoveReaction(ctx context.Context, username, id, emoji string) (map[string][]string, error) {
	message, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, nil
	}

	reactions := cloneReactions(message.Reactions)
	if users, ok := reactions[emoji]; ok {
		kept := users[:0]
		for _, u := range users {
			if u != username {
				kept = append(kept, u)
			}
		}
		if len(kept) == 0 {
			delete(reactions, emoji)
		} else {
			reactions[emoji] = kept
		}
	}

	if err := s.messageRepo.SetReactions(ctx, id, reactions); err != nil {
		return nil, err
	}

	return reactions, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func cloneReactions(reactions map[string][]string) map[string][]string {
	clone := make(map[string][]string, len(reactions))
	for emoji, users := range reactions {
		clone[emoji] = append([]string{}, users...)
	}
	return clone
}
