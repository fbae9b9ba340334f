package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// CreateOperator creates a new operator.
func CreateOperator(ctx context.Context, db *sql.DB, username, passwordHash, role string) (*model.Operator, error) {
	if err := model.ValidateRole(role); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO operators (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operator: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting operator id: %w", err)
	}

	return GetOperator(ctx, db, id)
}

// GetOperator returns an operator by ID.
func GetOperator(ctx context.Context, db *sql.DB, id int64) (*model.Operator, error) {
	o := &model.Operator{}
	err := db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at, deleted_at
		 FROM operators WHERE id = ?`, id,
	).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.Role, &o.CreatedAt, &o.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting operator: %w", err)
	}
	return o, nil
}

// GetOperatorByUsername returns the active operator with the given username.
func GetOperatorByUsername(ctx context.Context, db *sql.DB, username string) (*model.Operator, error) {
	o := &model.Operator{}
	err := db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at, deleted_at
		 FROM operators WHERE username = ? AND deleted_at IS NULL`, username,
	).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.Role, &o.CreatedAt, &o.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting operator by username: %w", err)
	}
	return o, nil
}

// CountOperators returns the number of active operators.
func CountOperators(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM operators WHERE deleted_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting operators: %w", err)
	}
	return n, nil
}

// UpdateOperatorPassword replaces an operator's password hash.
func UpdateOperatorPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE operators SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating operator password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.NotFoundf("operator %d not found", id)
	}
	return nil
}
