package users

import (
	"context"

	"github.com/dmitrijs2005/echo/internal/server/models"
)

// Repository persists user accounts.
type Repository interface {
	// Create inserts user. A taken username yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
