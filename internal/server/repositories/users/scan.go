package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/dbx"
	"github.com/dmitrijs2005/msauth/internal/server/models"
)

const userColumns = `id, name, email, password, status, type, created_at, updated_at, created_by, updated_by`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var status, typ string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &status, &typ,
		&u.CreatedAt, &u.UpdatedAt, &u.CreatedBy, &u.UpdatedBy)
	if err != nil {
		return nil, err
	}
	u.Status = models.UserStatus(status)
	u.Type = models.UserType(typ)
	return u, nil
}

func findOne(ctx context.Context, db dbx.DBTX, query string, arg any) (*models.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbError(err)
	}
	return u, nil
}

func list(ctx context.Context, db dbx.DBTX, query string) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbError(err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return result, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func dbError(err error) error {
	return common.StoreUnavailable(fmt.Errorf("db error: %w", err))
}

// uniqueViolation classifies an email collision reported by the store.
func uniqueViolation(kind common.Kind, email string, cause error) error {
	return &common.Error{Kind: kind, Email: email, Err: cause}
}
