package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flexlog/flexchat/internal/app/models"
	"github.com/flexlog/flexchat/internal/pkg/dberrors"
)

// ReactionRepository handles database operations for reactions
type ReactionRepository struct {
	db *pgxpool.Pool
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Insert adds a reaction. Returns false when the (message, user, emoji)
// triple already exists; the unique constraint is the enforcement point
// for idempotent adds.
func (r *ReactionRepository) Insert(ctx context.Context, reaction *models.Reaction) (bool, error) {
	query := `
		INSERT INTO reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		reaction.MessageID,
		reaction.UserID,
		reaction.Emoji,
	).Scan(&reaction.ID, &reaction.CreatedAt)

	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("error creating reaction: %w", err)
	}

	return true, nil
}

// Delete removes a reaction. Returns false when no row matched; removing
// a non-existent reaction is a no-op, not an error.
func (r *ReactionRepository) Delete(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("error deleting reaction: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByMessage retrieves the full reaction set for one message in
// insertion order
func (r *ReactionRepository) ListByMessage(ctx context.Context, messageID int64) ([]*models.Reaction, error) {
	query := `
		SELECT id, message_id, user_id, emoji, created_at
		FROM reactions
		WHERE message_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var reactions []*models.Reaction
	for rows.Next() {
		var reaction models.Reaction
		err := rows.Scan(
			&reaction.ID,
			&reaction.MessageID,
			&reaction.UserID,
			&reaction.Emoji,
			&reaction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning reaction row: %w", err)
		}
		reactions = append(reactions, &reaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaction rows: %w", err)
	}

	return reactions, nil
}

// ListByMessages retrieves reactions for a batch of messages, grouped by
// message id. Used by the view composer to avoid one query per message.
func (r *ReactionRepository) ListByMessages(ctx context.Context, messageIDs []int64) (map[int64][]*models.Reaction, error) {
	byMessage := make(map[int64][]*models.Reaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return byMessage, nil
	}

	query := `
		SELECT id, message_id, user_id, emoji, created_at
		FROM reactions
		WHERE message_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reaction models.Reaction
		err := rows.Scan(
			&reaction.ID,
			&reaction.MessageID,
			&reaction.UserID,
			&reaction.Emoji,
			&reaction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning reaction row: %w", err)
		}
		byMessage[reaction.MessageID] = append(byMessage[reaction.MessageID], &reaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaction rows: %w", err)
	}

	return byMessage, nil
}
