package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flexlog/flexchat/internal/app/models"
)

// TypingRepository handles database operations for typing statuses
type TypingRepository struct {
	db *pgxpool.Pool
}

// NewTypingRepository creates a new TypingRepository
func NewTypingRepository(db *pgxpool.Pool) *TypingRepository {
	return &TypingRepository{db: db}
}

// Upsert creates or refreshes the caller's typing status. The primary key
// on (user_id, conversation_id) guarantees at most one row per pair.
func (r *TypingRepository) Upsert(ctx context.Context, status *models.TypingStatus) error {
	query := `
		INSERT INTO typing_status (user_id, conversation_id, started_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id, conversation_id)
		DO UPDATE SET updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query, status.UserID, status.ConversationID)
	if err != nil {
		return fmt.Errorf("error upserting typing status: %w", err)
	}

	return nil
}

// Delete removes the caller's typing status. Deleting an absent row is fine.
func (r *TypingRepository) Delete(ctx context.Context, userID, conversationID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM typing_status WHERE user_id = $1 AND conversation_id = $2`,
		userID, conversationID,
	)
	if err != nil {
		return fmt.Errorf("error deleting typing status: %w", err)
	}
	return nil
}

// ListActive retrieves non-expired typing statuses for a conversation,
// excluding the given user. Recency filtering happens here rather than
// relying on physical deletion of expired rows.
func (r *TypingRepository) ListActive(
	ctx context.Context,
	conversationID int64,
	excludeUserID int64,
	since time.Time,
) ([]*models.TypingStatus, error) {
	queryBuilder := squirrel.Select(
		"t.user_id", "t.conversation_id", "t.started_at", "t.updated_at",
		"p.display_name", "p.avatar_url",
	).
		From("typing_status t").
		LeftJoin("profiles p ON t.user_id = p.user_id").
		Where("t.conversation_id = ?", conversationID).
		Where("t.user_id <> ?", excludeUserID).
		Where("t.updated_at > ?", since).
		OrderBy("t.started_at ASC").
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

	var statuses []*models.TypingStatus
	for rows.Next() {
		var status models.TypingStatus
		var displayName *string
		var avatarURL *string

		err := rows.Scan(
			&status.UserID,
			&status.ConversationID,
			&status.StartedAt,
			&status.UpdatedAt,
			&displayName,
			&avatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning typing status row: %w", err)
		}

		if displayName != nil {
			status.User = &models.Profile{
				UserID:      status.UserID,
				DisplayName: *displayName,
				AvatarURL:   avatarURL,
			}
		}

		statuses = append(statuses, &status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating typing status rows: %w", err)
	}

	return statuses, nil
}
