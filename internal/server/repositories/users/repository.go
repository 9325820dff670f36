// Package users persists user records. Implementations report a missing row
// as common.ErrorNotFound, a unique-email violation as a classified
// DuplicateEmail/EmailConflict error, and every other driver failure as
// StoreUnavailable.
package users

import (
	"context"

	"github.com/dmitrijs2005/msauth/internal/server/models"
)

type Repository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Create inserts user and returns it with ID assigned.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// Update overwrites every mutable column of the row with user.ID.
	Update(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	// List returns all records ordered by id.
	List(ctx context.Context) ([]*models.User, error)
}
