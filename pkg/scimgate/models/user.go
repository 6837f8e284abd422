package models

import "time"

// User is the relational row backing a SCIM User resource.
//
// Document holds the canonical SCIM JSON for the user; UserName and
// Active are shadow columns derived from it, used for uniqueness,
// filtering and stable list ordering. Every write path updates the
// document and the shadow columns in the same statement so the two
// can never diverge.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserName  string    `gorm:"uniqueIndex;not null" json:"user_name"`
	Active    bool      `gorm:"default:true" json:"active"`
	Document  []byte    `gorm:"type:json" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Memberships []GroupMember `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
}
