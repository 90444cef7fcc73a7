package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aoe-board/tournament-board/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentNameConflict   = errors.New("tournament name conflict")
	ErrTournamentURLConflict    = errors.New("tournament liquipedia url conflict")
	ErrTournamentInvalidMessage = errors.New("invalid message reference")
)

// ListTournamentsFilter narrows the tournament listing. ClaimedByUserID
// restricts the result to tournaments the given user holds a claim on (any
// approval state), which is how non-admins see their own submissions.
type ListTournamentsFilter struct {
	Status                   *models.TournamentStatus
	ClaimedByUserID          *int
	RegistrationCloseFrom    *time.Time
	RegistrationCloseBefore  *time.Time
	OrderByRegistrationClose bool
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	GetByMessageID(ctx context.Context, exec SQLExecutor, messageID int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, liquipedia_url, rules_url, registration_url, info_url,
	format, game, tier, prize_pool, restrictions, notes, organizers,
	status, registration_close, start_date, end_date, message_id, flags,
	logo_key, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (
			name, liquipedia_url, rules_url, registration_url, info_url,
			format, game, tier, prize_pool, restrictions, notes, organizers,
			status, registration_close, start_date, end_date, message_id, flags, logo_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.LiquipediaURL, t.RulesURL, t.RegistrationURL, t.InfoURL,
		t.Format, t.Game, t.Tier, t.PrizePool, t.Restrictions, t.Notes, t.Organizers,
		t.Status, t.RegistrationClose, t.StartDate, t.EndDate, t.MessageID, flagsParam(t.Flags), t.LogoKey,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournamentRow(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetByMessageID(ctx context.Context, exec SQLExecutor, messageID int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE message_id = $1`
	return r.scanTournamentRow(executor.QueryRowContext(ctx, query, messageID))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.ClaimedByUserID != nil {
		query += fmt.Sprintf(" AND id IN (SELECT tournament_id FROM tournament_claims WHERE user_id = $%d)", argID)
		args = append(args, *filter.ClaimedByUserID)
		argID++
	}
	if filter.RegistrationCloseFrom != nil {
		query += fmt.Sprintf(" AND registration_close >= $%d", argID)
		args = append(args, *filter.RegistrationCloseFrom)
		argID++
	}
	if filter.RegistrationCloseBefore != nil {
		query += fmt.Sprintf(" AND registration_close < $%d", argID)
		args = append(args, *filter.RegistrationCloseBefore)
		argID++
	}

	if filter.OrderByRegistrationClose {
		query += " ORDER BY registration_close ASC, name ASC"
	} else {
		query += " ORDER BY name ASC"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments SET
			name = $1,
			liquipedia_url = $2,
			rules_url = $3,
			registration_url = $4,
			info_url = $5,
			format = $6,
			game = $7,
			tier = $8,
			prize_pool = $9,
			restrictions = $10,
			notes = $11,
			organizers = $12,
			status = $13,
			registration_close = $14,
			start_date = $15,
			end_date = $16,
			message_id = $17,
			flags = $18
		WHERE id = $19`

	result, err := executor.ExecContext(ctx, query,
		t.Name, t.LiquipediaURL, t.RulesURL, t.RegistrationURL, t.InfoURL,
		t.Format, t.Game, t.Tier, t.PrizePool, t.Restrictions, t.Notes, t.Organizers,
		t.Status, t.RegistrationClose, t.StartDate, t.EndDate, t.MessageID, flagsParam(t.Flags),
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error {
	query := `UPDATE tournaments SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresTournamentRepository) scanTournament(row rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	var flags sql.NullString
	err := row.Scan(
		&t.ID, &t.Name, &t.LiquipediaURL, &t.RulesURL, &t.RegistrationURL, &t.InfoURL,
		&t.Format, &t.Game, &t.Tier, &t.PrizePool, &t.Restrictions, &t.Notes, &t.Organizers,
		&t.Status, &t.RegistrationClose, &t.StartDate, &t.EndDate, &t.MessageID, &flags,
		&t.LogoKey, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if flags.Valid {
		t.Flags = models.ParseFlags(flags.String)
	}
	return &t, nil
}

func (r *postgresTournamentRepository) scanTournamentRow(row *sql.Row) (*models.Tournament, error) {
	t, err := r.scanTournament(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

// flagsParam maps an empty flag set to NULL so that cleared flags round-trip
// the same way as never-set ones.
func flagsParam(flags models.FlagSet) *string {
	if len(flags) == 0 {
		return nil
	}
	s := flags.String()
	return &s
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			switch pqErr.Constraint {
			case "tournaments_name_key":
				return ErrTournamentNameConflict
			case "tournaments_liquipedia_url_key":
				return ErrTournamentURLConflict
			}
		case "23503":
			if pqErr.Constraint == "tournaments_message_id_fkey" {
				return ErrTournamentInvalidMessage
			}
		}
	}
	return err
}
