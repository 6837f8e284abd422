package models

import "time"

// Group is the relational row backing a SCIM Group resource.
//
// Document holds the canonical SCIM JSON for the group. It never
// contains the members attribute: membership lives exclusively in the
// group_members relation and is materialized into the document at
// read time. DisplayName is the shadow column used for uniqueness,
// filtering and list ordering.
type Group struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"uniqueIndex;not null" json:"display_name"`
	Document    []byte    `gorm:"type:json" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}
