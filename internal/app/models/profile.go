package models

import "time"

// Profile is the identity collaborator's projection of a user: an opaque id,
// a display name and an avatar reference. Account management lives elsewhere;
// this service only ever reads the 'profiles' table.
type Profile struct {
	UserID      int64     `json:"userId" db:"user_id"`
	DisplayName string    `json:"displayName" db:"display_name"`
	AvatarURL   *string   `json:"avatarUrl,omitempty" db:"avatar_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
