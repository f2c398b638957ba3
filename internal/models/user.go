package models

import (
	"encoding/gob"
	"strings"
)

// User is a persisted user record.
type User struct {
	Root
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// UserInput is the payload accepted when creating a user.
type UserInput struct {
	Name  string `json:"name" validate:"required,min=2,max=50"`
	Email string `json:"email" validate:"required,email"`
}

// Normalize trims surrounding whitespace from every field.
func (in UserInput) Normalize() UserInput {
	return UserInput{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
	}
}

// UserPatch is a partial update. Nil fields are left untouched.
type UserPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil
}

// Normalize trims surrounding whitespace from every present field.
func (p UserPatch) Normalize() UserPatch {
	out := UserPatch{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		out.Name = &name
	}
	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		out.Email = &email
	}
	return out
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func init() {
	// Principals are stored in cookie sessions, which gob-encode their values.
	gob.Register(Principal{})
}
