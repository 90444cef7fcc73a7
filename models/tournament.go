package models

import "time"

// TournamentStatus matches the ENUM in the database.
type TournamentStatus string

const (
	StatusSubmitted TournamentStatus = "submitted"
	StatusIgnored   TournamentStatus = "ignored"
	StatusPending   TournamentStatus = "pending"
	StatusPublished TournamentStatus = "published"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusIgnored, StatusPending, StatusPublished:
		return true
	}
	return false
}

// DefaultGame is pre-filled on newly submitted tournaments.
const DefaultGame = "Age of Empires II"

// Tournament is a community-submitted listing that helps players decide
// whether to register. It moves through submitted/ignored/pending/published
// under admin control.
type Tournament struct {
	ID                int              `json:"id" db:"id"`
	Name              string           `json:"name" db:"name"`
	LiquipediaURL     *string          `json:"liquipedia_url,omitempty" db:"liquipedia_url"`
	RulesURL          *string          `json:"rules_url,omitempty" db:"rules_url"`
	RegistrationURL   *string          `json:"registration_url,omitempty" db:"registration_url"`
	InfoURL           *string          `json:"info_url,omitempty" db:"info_url"`
	Format            *string          `json:"format,omitempty" db:"format"`
	Game              *string          `json:"game,omitempty" db:"game"`
	Tier              *string          `json:"tier,omitempty" db:"tier"`
	PrizePool         *string          `json:"prize_pool,omitempty" db:"prize_pool"`
	Restrictions      *string          `json:"restrictions,omitempty" db:"restrictions"`
	Notes             *string          `json:"notes,omitempty" db:"notes"`
	Organizers        *string          `json:"organizers,omitempty" db:"organizers"`
	Status            TournamentStatus `json:"status" db:"status"`
	RegistrationClose *time.Time       `json:"registration_close,omitempty" db:"registration_close"`
	StartDate         *time.Time       `json:"start_date,omitempty" db:"start_date"`
	EndDate           *time.Time       `json:"end_date,omitempty" db:"end_date"`
	MessageID         *int             `json:"message_id,omitempty" db:"message_id"`
	Flags             FlagSet          `json:"flags,omitempty" db:"-"`
	LogoKey           *string          `json:"-" db:"logo_key"`
	LogoURL           *string          `json:"logo_url,omitempty" db:"-"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`

	// Optional related entities, populated on demand.
	Message *Message          `json:"message,omitempty" db:"-"`
	Claims  []TournamentClaim `json:"claims,omitempty" db:"-"`
}

func (t *Tournament) HasFlag(flag string) bool {
	return t.Flags.Has(flag)
}
