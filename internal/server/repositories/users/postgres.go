package users

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/dbx"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return findOne(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, password, status, type, created_at, updated_at, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Password, string(user.Status), string(user.Type),
		user.CreatedAt, user.UpdatedAt, user.CreatedBy, user.UpdatedBy,
	).Scan(&user.ID)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, uniqueViolation(common.KindDuplicateEmail, user.Email, err)
		}
		return nil, dbError(err)
	}

	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users
		 SET name = $1, email = $2, password = $3, status = $4, type = $5, updated_at = $6, updated_by = $7
		 WHERE id = $8`

	res, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.Password, string(user.Status), string(user.Type),
		user.UpdatedAt, user.UpdatedBy, user.ID,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, uniqueViolation(common.KindEmailConflict, user.Email, err)
		}
		return nil, dbError(err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return dbError(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	return list(ctx, r.db, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
