package scim

import (
	"encoding/json"
	"strings"

	"github.com/coleleep/scimgate/pkg/scimgate/models"
	"gorm.io/gorm"
)

// UserStore persists User rows: the canonical SCIM document plus the
// shadow columns used for uniqueness, filtering and ordering. Write
// methods that take a tx handle participate in the caller's
// transaction; everything else runs as a single bounded statement.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a store bound to the given database handle.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// List returns one page of users plus the total count of rows
// matching the predicate, ordered by userName so pagination is stable
// across pages. Only the identity attribute may be filtered on; any
// other predicate is ignored and the list is unfiltered, a documented
// restriction of the filter slice we implement.
// The count and the page are two independent read-committed queries
// and are not snapshot-consistent under concurrent writes.
func (s *UserStore) List(pred *Predicate, startIndex, count int) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})
	if pred != nil && strings.EqualFold(pred.Attribute, "userName") {
		query = query.Where("user_name = ?", pred.Value)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := query.Order("user_name ASC").Offset(startIndex - 1).Limit(count).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Get fetches a user by id.
func (s *UserStore) Get(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, translateStoreError(err)
	}
	return &user, nil
}

// Create inserts a new user row. A userName collision surfaces as
// ErrConflict.
func (s *UserStore) Create(user *models.User) error {
	return translateStoreError(s.db.Create(user).Error)
}

// Replace writes the document and its shadow columns in a single
// statement on the given handle. Zero rows affected means the id does
// not resolve to a live user.
func (s *UserStore) Replace(tx *gorm.DB, id, userName string, active bool, document []byte) error {
	res := tx.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"user_name": userName,
		"active":    active,
		"document":  document,
	})
	if res.Error != nil {
		return translateStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user; membership edges go with it via the cascade
// on group_members.
func (s *UserStore) Delete(id string) error {
	res := s.db.Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return translateStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GroupStore is the Group counterpart of UserStore.
type GroupStore struct {
	db *gorm.DB
}

// NewGroupStore creates a store bound to the given database handle.
func NewGroupStore(db *gorm.DB) *GroupStore {
	return &GroupStore{db: db}
}

// List returns one page of groups plus the total matching count,
// ordered by displayName. Filtering follows the same identity-
// attribute-only restriction as UserStore.List.
func (s *GroupStore) List(pred *Predicate, startIndex, count int) ([]models.Group, int64, error) {
	query := s.db.Model(&models.Group{})
	if pred != nil && strings.EqualFold(pred.Attribute, "displayName") {
		query = query.Where("display_name = ?", pred.Value)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	if err := query.Order("display_name ASC").Offset(startIndex - 1).Limit(count).Find(&groups).Error; err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// Get fetches a group by id.
func (s *GroupStore) Get(id string) (*models.Group, error) {
	var group models.Group
	if err := s.db.First(&group, "id = ?", id).Error; err != nil {
		return nil, translateStoreError(err)
	}
	return &group, nil
}

// Create inserts a new group row. A displayName collision surfaces as
// ErrConflict.
func (s *GroupStore) Create(group *models.Group) error {
	return translateStoreError(s.db.Create(group).Error)
}

// Replace writes the document and the displayName shadow column in a
// single statement on the given handle.
func (s *GroupStore) Replace(tx *gorm.DB, id, displayName string, document []byte) error {
	res := tx.Model(&models.Group{}).Where("id = ?", id).Updates(map[string]interface{}{
		"display_name": displayName,
		"document":     document,
	})
	if res.Error != nil {
		return translateStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a group and, via cascade, its membership edges.
func (s *GroupStore) Delete(id string) error {
	res := s.db.Delete(&models.Group{}, "id = ?", id)
	if res.Error != nil {
		return translateStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// decodeUserDocument unmarshals a user row's canonical document.
func decodeUserDocument(user *models.User) (*User, error) {
	var doc User
	if err := json.Unmarshal(user.Document, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// decodeGroupDocument unmarshals a group row's canonical document.
func decodeGroupDocument(group *models.Group) (*Group, error) {
	var doc Group
	if err := json.Unmarshal(group.Document, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
