package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Idempotency is the stored outcome of a completed unsafe request, keyed by
// (user_id, scope, key). Scope is the method and route pattern, e.g.
// "POST /api/v1/features", so one client key can be reused across endpoints.
// A record answers retries until ExpiresAt; after that the key is free again.
type Idempotency struct {
	ID         string       `gorm:"type:varchar(36);primaryKey"`
	UserID     string       `gorm:"type:varchar(64);not null;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope      string       `gorm:"type:varchar(255);not null;uniqueIndex:ux_user_scope_key,priority:2"`
	Key        string       `gorm:"type:varchar(200);not null;uniqueIndex:ux_user_scope_key,priority:3"`
	ResourceID snowflake.ID `gorm:"not null"`
	Status     int          `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null"`
	ExpiresAt  time.Time    `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Expired reports whether the record no longer answers retries at now.
func (i Idempotency) Expired(now time.Time) bool { return !now.Before(i.ExpiresAt) }
