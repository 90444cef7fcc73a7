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
	ErrMessageNotFound    = errors.New("message not found")
	ErrMessageInvalidUser = errors.New("invalid user reference")
)

// InboxGroupRow is one bucket of the admin inbox aggregate: inbound message
// count per (sender, read, requires_action). SenderEmail is nil for
// anonymous submissions.
type InboxGroupRow struct {
	SenderEmail    *string
	Read           bool
	RequiresAction bool
	Count          int
}

// ListMessagesFilter selects a conversation thread. Exactly one of UserID /
// Anonymous / SenderEmail should be set; NewestFirst flips the order for the
// anonymous view.
type ListMessagesFilter struct {
	UserID      *int
	Anonymous   bool
	SenderEmail *string
	NewestFirst bool
}

type MessageRepository interface {
	Create(ctx context.Context, exec SQLExecutor, message *models.Message) error
	GetByID(ctx context.Context, id int) (*models.Message, error)
	List(ctx context.Context, filter ListMessagesFilter) ([]models.Message, error)
	GroupBySender(ctx context.Context) ([]InboxGroupRow, error)
	MarkRead(ctx context.Context, ids []int) error
	SetRequiresAction(ctx context.Context, id int, requiresAction bool) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) MessageRepository {
	return &postgresMessageRepository{db: db}
}

func (r *postgresMessageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMessageRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Message) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO messages (body, user_id, read, from_admin, requires_action)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.Body, m.UserID, m.Read, m.FromAdmin, m.RequiresAction,
	).Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "messages_user_id_fkey" {
				return ErrMessageInvalidUser
			}
		}
		return err
	}
	return nil
}

const messageColumns = `
	m.id, m.body, m.user_id, m.read, m.from_admin, m.requires_action, m.created_at,
	u.id, u.email, u.admin`

const messageFrom = `
	FROM messages m
	LEFT JOIN users u ON m.user_id = u.id`

func (r *postgresMessageRepository) GetByID(ctx context.Context, id int) (*models.Message, error) {
	query := `SELECT` + messageColumns + messageFrom + ` WHERE m.id = $1`

	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMessageRepository) List(ctx context.Context, filter ListMessagesFilter) ([]models.Message, error) {
	query := `SELECT` + messageColumns + messageFrom + ` WHERE 1=1`

	args := []interface{}{}
	argID := 1

	switch {
	case filter.UserID != nil:
		query += fmt.Sprintf(" AND m.user_id = $%d", argID)
		args = append(args, *filter.UserID)
		argID++
	case filter.SenderEmail != nil:
		query += fmt.Sprintf(" AND u.email = $%d", argID)
		args = append(args, *filter.SenderEmail)
		argID++
	case filter.Anonymous:
		query += " AND m.user_id IS NULL"
	}

	if filter.NewestFirst {
		query += " ORDER BY m.created_at DESC"
	} else {
		query += " ORDER BY m.created_at ASC"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		m, scanErr := scanMessage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// GroupBySender aggregates inbound (non-admin) messages per sender email and
// read/requires_action state. Admin-authored messages never appear here.
func (r *postgresMessageRepository) GroupBySender(ctx context.Context) ([]InboxGroupRow, error) {
	query := `
		SELECT u.email, m.read, m.requires_action, COUNT(*)
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.from_admin = FALSE
		GROUP BY u.email, m.read, m.requires_action`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to group messages by sender: %w", err)
	}
	defer rows.Close()

	groups := make([]InboxGroupRow, 0)
	for rows.Next() {
		var row InboxGroupRow
		if scanErr := rows.Scan(&row.SenderEmail, &row.Read, &row.RequiresAction, &row.Count); scanErr != nil {
			return nil, scanErr
		}
		groups = append(groups, row)
	}
	return groups, rows.Err()
}

func (r *postgresMessageRepository) MarkRead(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE messages SET read = TRUE WHERE id = ANY($1)`
	_, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	return err
}

func (r *postgresMessageRepository) SetRequiresAction(ctx context.Context, id int, requiresAction bool) error {
	query := `UPDATE messages SET requires_action = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, requiresAction, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMessageNotFound)
}

func (r *postgresMessageRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM messages WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMessageNotFound)
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var m models.Message
	var userID sql.NullInt64
	var userEmail sql.NullString
	var userAdmin sql.NullBool

	err := row.Scan(
		&m.ID, &m.Body, &m.UserID, &m.Read, &m.FromAdmin, &m.RequiresAction, &m.CreatedAt,
		&userID, &userEmail, &userAdmin,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		m.User = &models.User{
			ID:    int(userID.Int64),
			Email: userEmail.String,
			Admin: userAdmin.Bool,
		}
	}
	return &m, nil
}
