package users

import (
	"context"

	"github.com/dmitrijs2005/chirper/internal/server/models"
)

// Repository is the user store used by the auth service.
//
// Lookups return common.ErrorNotFound when no row matches, and Create
// returns common.ErrorConflict when the email is already taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
}
