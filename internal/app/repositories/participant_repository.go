package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flexlog/flexchat/internal/app/models"
)

// ParticipantRepository handles database operations for conversation
// membership, the authoritative authorization source for the core.
type ParticipantRepository struct {
	db *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(db *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// IsMember checks whether a user belongs to a conversation
func (r *ParticipantRepository) IsMember(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking membership: %w", err)
	}
	return exists, nil
}

// IsAdmin checks whether a user holds the admin role in a conversation
func (r *ParticipantRepository) IsAdmin(ctx context.Context, conversationID, userID int64) (bool, error) {
	var role models.ParticipantRole
	err := r.db.QueryRow(ctx,
		`SELECT role FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	).Scan(&role)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error checking admin role: %w", err)
	}
	return role == models.RoleAdmin, nil
}

// ListByConversation retrieves all participants of a conversation
func (r *ParticipantRepository) ListByConversation(ctx context.Context, conversationID int64) ([]*models.ConversationParticipant, error) {
	queryBuilder := squirrel.Select(
		"cp.conversation_id", "cp.user_id", "cp.role", "cp.joined_at",
		"p.display_name", "p.avatar_url",
	).
		From("conversation_participants cp").
		LeftJoin("profiles p ON cp.user_id = p.user_id").
		Where("cp.conversation_id = ?", conversationID).
		OrderBy("cp.joined_at ASC").
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

	var participants []*models.ConversationParticipant
	for rows.Next() {
		var participant models.ConversationParticipant
		var displayName *string
		var avatarURL *string

		err := rows.Scan(
			&participant.ConversationID,
			&participant.UserID,
			&participant.Role,
			&participant.JoinedAt,
			&displayName,
			&avatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning participant row: %w", err)
		}

		if displayName != nil {
			participant.User = &models.Profile{
				UserID:      participant.UserID,
				DisplayName: *displayName,
				AvatarURL:   avatarURL,
			}
		}

		participants = append(participants, &participant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}

	return participants, nil
}
