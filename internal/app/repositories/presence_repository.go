package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flexlog/flexchat/internal/app/models"
)

// PresenceRepository handles database operations for presence rows
type PresenceRepository struct {
	db *pgxpool.Pool
}

// NewPresenceRepository creates a new PresenceRepository
func NewPresenceRepository(db *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Upsert writes the caller's derived presence. Last-write-wins: each
// writer only ever touches its own user_id key.
func (r *PresenceRepository) Upsert(ctx context.Context, presence *models.Presence) error {
	query := `
		INSERT INTO presence (user_id, status, last_seen_at, active_conversation_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			last_seen_at = EXCLUDED.last_seen_at,
			active_conversation_id = EXCLUDED.active_conversation_id
	`

	_, err := r.db.Exec(ctx, query,
		presence.UserID,
		presence.Status,
		presence.LastSeenAt,
		presence.ActiveConversationID,
	)
	if err != nil {
		return fmt.Errorf("error upserting presence: %w", err)
	}

	return nil
}

// ListOnline retrieves non-offline presence rows, optionally scoped to a
// conversation's active viewers. Rows whose last_seen_at predates the
// staleness cutoff are excluded regardless of stored status, because a
// best-effort offline write on teardown may have been lost.
func (r *PresenceRepository) ListOnline(
	ctx context.Context,
	conversationID *int64,
	staleBefore time.Time,
) ([]*models.Presence, error) {
	queryBuilder := squirrel.Select(
		"pr.user_id", "pr.status", "pr.last_seen_at", "pr.active_conversation_id",
		"p.display_name", "p.avatar_url",
	).
		From("presence pr").
		LeftJoin("profiles p ON pr.user_id = p.user_id").
		Where(squirrel.NotEq{"pr.status": models.PresenceOffline}).
		Where("pr.last_seen_at > ?", staleBefore).
		OrderBy("pr.last_seen_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if conversationID != nil {
		queryBuilder = queryBuilder.Where("pr.active_conversation_id = ?", *conversationID)
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

	var presences []*models.Presence
	for rows.Next() {
		var presence models.Presence
		var displayName *string
		var avatarURL *string

		err := rows.Scan(
			&presence.UserID,
			&presence.Status,
			&presence.LastSeenAt,
			&presence.ActiveConversationID,
			&displayName,
			&avatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning presence row: %w", err)
		}

		if displayName != nil {
			presence.User = &models.Profile{
				UserID:      presence.UserID,
				DisplayName: *displayName,
				AvatarURL:   avatarURL,
			}
		}

		presences = append(presences, &presence)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presence rows: %w", err)
	}

	return presences, nil
}
