package users

import (
	"context"

	"userdesk/internal/models"
)

// Store is the data-store collaborator. Lookups of absent records return
// ErrNotFound; writes that collide with another record's email return
// ErrEmailTaken.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Insert(ctx context.Context, in models.UserInput) (*models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}
