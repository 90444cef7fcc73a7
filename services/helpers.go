package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/aoe-board/tournament-board/models"
	"github.com/aoe-board/tournament-board/repositories"
)

// TxRunner runs a unit of work atomically. The executor handed to fn must be
// passed on to every repository call that participates in the unit.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

// RunInTx runs fn inside a transaction, rolling back on error or panic.
func (r *sqlTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const liquipediaPathPrefix = "/ageofempires/"

var schemeHostPattern = regexp.MustCompile(`^https?://[^/]+`)

// hygienateLiquipediaURL trims the input, strips any scheme and host, and
// enforces the canonical path prefix. Blank input normalizes to nil so the
// column's unique index keeps allowing multiple absent URLs.
func hygienateLiquipediaURL(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	trimmed = schemeHostPattern.ReplaceAllString(trimmed, "")
	if !strings.HasPrefix(trimmed, liquipediaPathPrefix) {
		return nil, fmt.Errorf("%w: %q", ErrLiquipediaURLInvalid, trimmed)
	}
	return &trimmed, nil
}

// statusTransitions is the explicit lifecycle table: which target statuses a
// tournament may move to from each current status. Role and precondition
// checks (publishing requires an admin and a registration close date) are
// enforced separately in UpdateStatus.
var statusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusSubmitted: {models.StatusIgnored, models.StatusPending},
	models.StatusIgnored:   {models.StatusSubmitted, models.StatusPending},
	models.StatusPending:   {models.StatusSubmitted, models.StatusIgnored, models.StatusPublished},
	models.StatusPublished: {models.StatusPending},
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	for _, allowed := range statusTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
