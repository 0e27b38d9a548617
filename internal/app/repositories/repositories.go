package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	MessageRepository     *MessageRepository
	TypingRepository      *TypingRepository
	PresenceRepository    *PresenceRepository
	ReactionRepository    *ReactionRepository
	ParticipantRepository *ParticipantRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		MessageRepository:     NewMessageRepository(db),
		TypingRepository:      NewTypingRepository(db),
		PresenceRepository:    NewPresenceRepository(db),
		ReactionRepository:    NewReactionRepository(db),
		ParticipantRepository: NewParticipantRepository(db),
	}
}
