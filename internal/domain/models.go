// Package domain defines the persistence models for feature requests and
// votes. These types are mapped with GORM and form the core data layer of the
// wishlist application.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the lifecycle state of a feature request. Any state may move to
// any other state; none is terminal.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusRejected   Status = "REJECTED"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusDone, StatusRejected}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusRejected:
		return true
	}
	return false
}

// ParseStatus maps a case-insensitive name ("in_progress", "DONE", ...) to a
// Status. The second result is false for unknown names.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// FeatureRequest is a wish submitted by a user. It is owned by the feature
// catalog and is never deleted.
//
// Fields:
//   - ID: snowflake id, assigned on creation and immutable.
//   - Title: 3..255 runes.
//   - Description: optional, up to 5000 runes.
//   - Category: optional, up to 255 runes.
//   - Status: lifecycle state, OPEN on creation.
//   - TicketURL: empty, an http(s) URL, or an unexpanded ticket key.
//   - CreatedBy: username of the submitter (informational).
//   - CreatedAt: set once on creation. UpdatedAt is maintained by GORM.
type FeatureRequest struct {
	ID          snowflake.ID `json:"id"                   gorm:"primaryKey;autoIncrement:false"`
	Title       string       `json:"title"                gorm:"type:varchar(255);not null"`
	Description string       `json:"description"          gorm:"type:text"`
	Category    string       `json:"category"             gorm:"type:varchar(255);index"`
	Status      Status       `json:"status"               gorm:"type:varchar(16);not null;default:'OPEN';index:idx_features_status"`
	TicketURL   string       `json:"ticket_url,omitempty" gorm:"type:varchar(2048)"`
	CreatedBy   string       `json:"created_by,omitempty" gorm:"type:varchar(64)"`
	CreatedAt   time.Time    `json:"created_at"           gorm:"not null;index:idx_features_created"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName returns the database table name for FeatureRequest.
func (FeatureRequest) TableName() string { return "features" }

// Vote is append-only evidence that a voter supported a feature. A voter can
// hold at most one vote per feature (enforced by unique index).
type Vote struct {
	ID        snowflake.ID `json:"id"         gorm:"primaryKey;autoIncrement:false"`
	FeatureID snowflake.ID `json:"feature_id" gorm:"not null;index;uniqueIndex:ux_votes_feature_voter,priority:1"`
	VoterID   string       `json:"-"          gorm:"type:varchar(64);not null;index;uniqueIndex:ux_votes_feature_voter,priority:2"`
	VotedAt   time.Time    `json:"voted_at"   gorm:"not null"`

	// Feature is the voted-on request. Features are never deleted, so the
	// constraint only guards against dangling references.
	Feature FeatureRequest `json:"-" gorm:"foreignKey:FeatureID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }
