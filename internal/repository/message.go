package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lan_messenger/internal/domain"
	"lan_messenger/pkg/logger"
)

// MessageRepository is the persistence gateway for chat messages. Each
// operation is atomic on its own; concurrent writers on the same id are
// last-writer-wins.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	// History returns every message ordered by timestamp ascending.
	History(ctx context.Context) ([]*domain.Message, error)
	// GetByID returns (nil, nil) when the id is unknown.
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	UpdateContent(ctx context.Context, id, content string) error
	// Delete removes the row and returns it, or (nil, nil) when absent.
	Delete(ctx context.Context, id string) (*domain.Message, error)
	SetReadBy(ctx context.Context, id string, readBy []string) error
	SetReactions(ctx context.Context, id string, reactions map[string][]string) error
	// MediaMessages lists image/video/file messages for the gallery,
	// optionally filtered to one type.
	MediaMessages(ctx context.Context, mediaType string, newestFirst bool) ([]*domain.Message, error)
	// MediaRefs lists the storage key and type of every media message,
	// voice included.
	MediaRefs(ctx context.Context) ([]domain.MediaRef, error)
	CountMedia(ctx context.Context) (int64, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageColumns = `id, username, message, type, timestamp, reply_to, read_by, file_size, original_name, reactions`

func (r *messageRepository) scanMessage(row pgx.Row) (*domain.Message, error) {
	msg := &domain.Message{}
	err := row.Scan(
		&msg.ID, &msg.Username, &msg.Content, &msg.Type, &msg.Timestamp,
		&msg.ReplyTo, &msg.ReadBy, &msg.FileSize, &msg.OriginalName, &msg.Reactions,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, username, message, type, timestamp, reply_to, read_by, file_size, original_name, reactions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	readBy := message.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	reactions := message.Reactions
	if reactions == nil {
		reactions = map[string][]string{}
	}

	_, err := r.db.Exec(ctx, query,
		message.ID, message.Username, message.Content, message.Type, message.Timestamp,
		message.ReplyTo, readBy, message.FileSize, message.OriginalName, reactions,
	)
	if err != nil {
		r.log.Error("Failed to create message", "error", err, "id", message.ID)
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *messageRepository) History(ctx context.Context) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages ORDER BY timestamp ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to load history", "error", err)
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg, err := r.scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	msg, err := r.scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("Failed to get message", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return msg, nil
}

func (r *messageRepository) UpdateContent(ctx context.Context, id, content string) error {
	query := `UPDATE messages SET message = $2 WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, content)
	if err != nil {
		r.log.Error("Failed to update message", "error", err, "id", id)
		return fmt.Errorf("failed to update message: %w", err)
	}

	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id string) (*domain.Message, error) {
	query := `DELETE FROM messages WHERE id = $1 RETURNING ` + messageColumns

	msg, err := r.scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("Failed to delete message", "error", err, "id", id)
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}

	return msg, nil
}

func (r *messageRepository) SetReadBy(ctx context.Context, id string, readBy []string) error {
	query := `UPDATE messages SET read_by = $2 WHERE id = $1`

	if readBy == nil {
		readBy = []string{}
	}
	_, err := r.db.Exec(ctx, query, id, readBy)
	if err != nil {
		r.log.Error("Failed to update read receipts", "error", err, "id", id)
		return fmt.Errorf("failed to update read receipts: %w", err)
	}

	return nil
}

func (r *messageRepository) SetReactions(ctx context.Context, id string, reactions map[string][]string) error {
	query := `UPDATE messages SET reactions = $2 WHERE id = $1`

	if reactions == nil {
		reactions = map[string][]string{}
	}
	_, err := r.db.Exec(ctx, query, id, reactions)
	if err != nil {
		r.log.Error("Failed to update reactions", "error", err, "id", id)
		return fmt.Errorf("failed to update reactions: %w", err)
	}

	return nil
}

func (r *messageRepository) MediaMessages(ctx context.Context, mediaType string, newestFirst bool) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE type IN ('image', 'video', 'file')`
	args := []any{}

	if mediaType != "" && mediaType != "all" {
		query += ` AND type = $1`
		args = append(args, mediaType)
	}

	if newestFirst {
		query += ` ORDER BY timestamp DESC`
	} else {
		query += ` ORDER BY timestamp ASC`
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list media messages", "error", err)
		return nil, fmt.Errorf("failed to list media messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (r *messageRepository) MediaRefs(ctx context.Context) ([]domain.MediaRef, error) {
	query := `SELECT message, type FROM messages WHERE type IN ('image', 'video', 'file', 'voice')`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to list media refs", "error", err)
		return nil, fmt.Errorf("failed to list media refs: %w", err)
	}
	defer rows.Close()

	var refs []domain.MediaRef
	for rows.Next() {
		var ref domain.MediaRef
		if err := rows.Scan(&ref.Key, &ref.Type); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

func (r *messageRepository) CountMedia(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM messages WHERE type IN ('image', 'video', 'file', 'voice')`

	var count int64
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		r.log.Error("Failed to count media messages", "error", err)
		return 0, fmt.Errorf("failed to count media messages: %w", err)
	}

	return count, nil
}
