package models

import (
	"time"
)

// Root carries the store-assigned identity and timestamps shared by persisted records.
type Root struct {
	ID        int64     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
