package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aoe-board/tournament-board/models"
	"github.com/lib/pq"
)

var (
	ErrClaimNotFound          = errors.New("tournament claim not found")
	ErrClaimConflict          = errors.New("claim already exists for this user and tournament")
	ErrClaimInvalidUser       = errors.New("invalid user reference")
	ErrClaimInvalidTournament = errors.New("invalid tournament reference")
)

// ListClaimsFilter narrows the claim listing. RequireReasoning drops claims
// with blank reasoning; the admin approval queue uses it to hide legacy
// auto-created claims.
type ListClaimsFilter struct {
	UserID           *int
	TournamentID     *int
	RequireReasoning bool
}

type TournamentClaimRepository interface {
	Create(ctx context.Context, exec SQLExecutor, claim *models.TournamentClaim) error
	GetByID(ctx context.Context, id int) (*models.TournamentClaim, error)
	List(ctx context.Context, filter ListClaimsFilter) ([]models.TournamentClaim, error)
	HasClaim(ctx context.Context, userID, tournamentID int, approved bool) (bool, error)
	UpdateReasoning(ctx context.Context, id int, reasoning string) error
	SetApproved(ctx context.Context, id int, approved bool) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentClaimRepository struct {
	db *sql.DB
}

func NewPostgresTournamentClaimRepository(db *sql.DB) TournamentClaimRepository {
	return &postgresTournamentClaimRepository{db: db}
}

func (r *postgresTournamentClaimRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentClaimRepository) Create(ctx context.Context, exec SQLExecutor, claim *models.TournamentClaim) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_claims (tournament_id, user_id, reasoning, approved)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		claim.TournamentID, claim.UserID, claim.Reasoning, claim.Approved,
	).Scan(&claim.ID, &claim.CreatedAt)

	return r.handleClaimError(err)
}

func (r *postgresTournamentClaimRepository) GetByID(ctx context.Context, id int) (*models.TournamentClaim, error) {
	query := `
		SELECT
			c.id, c.tournament_id, c.user_id, c.reasoning, c.approved, c.created_at,
			u.id, u.email, u.admin,
			t.id, t.name, t.status
		FROM tournament_claims c
		JOIN users u ON c.user_id = u.id
		JOIN tournaments t ON c.tournament_id = t.id
		WHERE c.id = $1`

	claim, err := scanClaimWithRelations(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return claim, nil
}

func (r *postgresTournamentClaimRepository) List(ctx context.Context, filter ListClaimsFilter) ([]models.TournamentClaim, error) {
	query := `
		SELECT
			c.id, c.tournament_id, c.user_id, c.reasoning, c.approved, c.created_at,
			u.id, u.email, u.admin,
			t.id, t.name, t.status
		FROM tournament_claims c
		JOIN users u ON c.user_id = u.id
		JOIN tournaments t ON c.tournament_id = t.id
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND c.user_id = $%d", argID)
		args = append(args, *filter.UserID)
		argID++
	}
	if filter.TournamentID != nil {
		query += fmt.Sprintf(" AND c.tournament_id = $%d", argID)
		args = append(args, *filter.TournamentID)
		argID++
	}
	if filter.RequireReasoning {
		query += ` AND c.reasoning <> ''`
	}

	query += ` ORDER BY c.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := make([]models.TournamentClaim, 0)
	for rows.Next() {
		claim, scanErr := scanClaimWithRelations(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		claims = append(claims, *claim)
	}
	return claims, rows.Err()
}

func (r *postgresTournamentClaimRepository) HasClaim(ctx context.Context, userID, tournamentID int, approved bool) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM tournament_claims
			WHERE user_id = $1 AND tournament_id = $2 AND approved = $3
		)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, tournamentID, approved).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresTournamentClaimRepository) UpdateReasoning(ctx context.Context, id int, reasoning string) error {
	query := `UPDATE tournament_claims SET reasoning = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, reasoning, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrClaimNotFound)
}

func (r *postgresTournamentClaimRepository) SetApproved(ctx context.Context, id int, approved bool) error {
	query := `UPDATE tournament_claims SET approved = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, approved, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrClaimNotFound)
}

func (r *postgresTournamentClaimRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournament_claims WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrClaimNotFound)
}

func scanClaimWithRelations(row rowScanner) (*models.TournamentClaim, error) {
	var c models.TournamentClaim
	var u models.User
	var t models.Tournament

	err := row.Scan(
		&c.ID, &c.TournamentID, &c.UserID, &c.Reasoning, &c.Approved, &c.CreatedAt,
		&u.ID, &u.Email, &u.Admin,
		&t.ID, &t.Name, &t.Status,
	)
	if err != nil {
		return nil, err
	}
	c.User = &u
	c.Tournament = &t
	return &c, nil
}

func (r *postgresTournamentClaimRepository) handleClaimError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournament_claims_tournament_id_user_id_key" {
				return ErrClaimConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "tournament_claims_user_id_fkey":
				return ErrClaimInvalidUser
			case "tournament_claims_tournament_id_fkey":
				return ErrClaimInvalidTournament
			}
		}
	}
	return err
}
