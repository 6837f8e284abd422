package models

import "time"

// ProvisioningToken is a SCIM bearer token issued to an identity
// provider. Only the SHA-256 hash is stored; the prefix is kept so
// admins can tell tokens apart in listings.
type ProvisioningToken struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	TokenHash   string     `gorm:"uniqueIndex;not null" json:"-"`
	TokenPrefix string     `gorm:"size:8" json:"token_prefix"`
	Description string     `json:"description"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}
