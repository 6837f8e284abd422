package models

import "time"

// GroupMember is one membership edge between a Group and a User.
//
// The relation is the single source of truth for group membership; a
// Group document's members attribute is always derived from these
// rows, never persisted. The composite primary key makes the pair
// unique, and both foreign keys cascade so deleting either endpoint
// removes the edge.
type GroupMember struct {
	GroupID   string    `gorm:"primaryKey" json:"group_id"`
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"group,omitempty"`
}
