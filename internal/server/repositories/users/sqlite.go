package users

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/dbx"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return findOne(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, password, status, type, created_at, updated_at, created_by, updated_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.Password, string(user.Status), string(user.Type),
		user.CreatedAt.UTC(), user.UpdatedAt.UTC(), user.CreatedBy, user.UpdatedBy,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, uniqueViolation(common.KindDuplicateEmail, user.Email, err)
		}
		return nil, dbError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, dbError(err)
	}
	user.ID = id

	return user, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users
		 SET name = ?, email = ?, password = ?, status = ?, type = ?, updated_at = ?, updated_by = ?
		 WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.Password, string(user.Status), string(user.Type),
		user.UpdatedAt.UTC(), user.UpdatedBy, user.ID,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, uniqueViolation(common.KindEmailConflict, user.Email, err)
		}
		return nil, dbError(err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return dbError(err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.User, error) {
	return list(ctx, r.db, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
