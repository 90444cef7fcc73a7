package models

import "time"

// TournamentClaim is a user's assertion of ownership over a tournament. A
// claim must be approved by an admin before it grants any rights; at most one
// claim exists per (tournament, user) pair.
type TournamentClaim struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Reasoning    string    `json:"reasoning" db:"reasoning"`
	Approved     bool      `json:"approved" db:"approved"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	User       *User       `json:"user,omitempty" db:"-"`
	Tournament *Tournament `json:"tournament,omitempty" db:"-"`
}
