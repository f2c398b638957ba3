package users

import (
	"context"
	"strconv"
)

// View keys signalled after mutations.
const (
	ViewHome  = "/"
	ViewUsers = "/users"
)

// UserView is the key of the per-record detail view.
func UserView(id int64) string {
	return ViewUsers + "/" + strconv.FormatInt(id, 10)
}

// Invalidator marks cached renders of the given views as stale.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, ...string) {}
