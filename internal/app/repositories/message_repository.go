package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flexlog/flexchat/internal/app/models"
)

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert persists a new message and fills in the server-assigned identity
func (r *MessageRepository) Insert(ctx context.Context, message *models.Message) (int64, error) {
	query := `
		INSERT INTO messages (
			conversation_id, author_id, body, media_url, media_type, reply_to_id
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	var id int64
	var createdAt time.Time
	err := r.db.QueryRow(ctx, query,
		message.ConversationID,
		message.AuthorID,
		message.Body,
		message.MediaURL,
		message.MediaType,
		message.ReplyToID,
	).Scan(&id, &createdAt)

	if err != nil {
		return 0, fmt.Errorf("error creating message: %w", err)
	}

	message.ID = id
	message.CreatedAt = createdAt

	return id, nil
}

// GetByID retrieves a message by its ID with the author profile joined
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `
		SELECT
			m.id, m.conversation_id, m.author_id, m.body, m.media_url, m.media_type,
			m.reply_to_id, m.pinned, m.hidden, m.read, m.created_at,
			p.display_name, p.avatar_url
		FROM messages m
		LEFT JOIN profiles p ON m.author_id = p.user_id
		WHERE m.id = $1
	`

	var message models.Message
	var displayName *string
	var avatarURL *string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&message.ID,
		&message.ConversationID,
		&message.AuthorID,
		&message.Body,
		&message.MediaURL,
		&message.MediaType,
		&message.ReplyToID,
		&message.Pinned,
		&message.Hidden,
		&message.Read,
		&message.CreatedAt,
		&displayName,
		&avatarURL,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("message not found with ID %d", id)
		}
		return nil, fmt.Errorf("error retrieving message: %w", err)
	}

	if displayName != nil {
		message.Author = &models.Profile{
			UserID:      message.AuthorID,
			DisplayName: *displayName,
			AvatarURL:   avatarURL,
		}
	}

	return &message, nil
}

// ListByConversation retrieves visible messages for a conversation with filters
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	before *time.Time,
	limit int,
) ([]*models.Message, error) {
	queryBuilder := squirrel.Select(
		"m.id", "m.conversation_id", "m.author_id", "m.body", "m.media_url",
		"m.media_type", "m.reply_to_id", "m.pinned", "m.hidden", "m.read",
		"m.created_at", "p.display_name", "p.avatar_url",
	).
		From("messages m").
		LeftJoin("profiles p ON m.author_id = p.user_id").
		Where("m.conversation_id = ?", conversationID).
		Where("m.hidden = FALSE").
		OrderBy("m.created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	if before != nil {
		queryBuilder = queryBuilder.Where("m.created_at < ?", before)
	}

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return scanMessageRows(rows)
}

// ListPinned retrieves pinned, visible messages ordered oldest-first
func (r *MessageRepository) ListPinned(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	queryBuilder := squirrel.Select(
		"m.id", "m.conversation_id", "m.author_id", "m.body", "m.media_url",
		"m.media_type", "m.reply_to_id", "m.pinned", "m.hidden", "m.read",
		"m.created_at", "p.display_name", "p.avatar_url",
	).
		From("messages m").
		LeftJoin("profiles p ON m.author_id = p.user_id").
		Where("m.conversation_id = ?", conversationID).
		Where("m.pinned = TRUE").
		Where("m.hidden = FALSE").
		OrderBy("m.created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return scanMessageRows(rows)
}

// SetPinned updates a message's pinned flag
func (r *MessageRepository) SetPinned(ctx context.Context, id int64, pinned bool) error {
	result, err := r.db.Exec(ctx, `UPDATE messages SET pinned = $1 WHERE id = $2`, pinned, id)
	if err != nil {
		return fmt.Errorf("error updating pinned flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no message found with ID %d", id)
	}

	return nil
}

// MarkRead sets the read flag on a message
func (r *MessageRepository) MarkRead(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE messages SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error marking message read: %w", err)
	}
	return nil
}

func scanMessageRows(rows pgx.Rows) ([]*models.Message, error) {
	var messages []*models.Message
	for rows.Next() {
		var message models.Message
		var displayName *string
		var avatarURL *string

		err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.AuthorID,
			&message.Body,
			&message.MediaURL,
			&message.MediaType,
			&message.ReplyToID,
			&message.Pinned,
			&message.Hidden,
			&message.Read,
			&message.CreatedAt,
			&displayName,
			&avatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}

		if displayName != nil {
			message.Author = &models.Profile{
				UserID:      message.AuthorID,
				DisplayName: *displayName,
				AvatarURL:   avatarURL,
			}
		}

		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}
