package scim

import (
	"fmt"

	"github.com/coleleep/scimgate/pkg/scimgate/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Membership synchronizer: the group_members relation is the single
// source of truth for who is in a group. These functions are the only
// writers of that relation; they run on whatever handle the caller
// passes, so multi-step mutations stay inside one transaction.

// AddMembers inserts one membership edge per user id. Edges that
// already exist are skipped via ON CONFLICT DO NOTHING, which makes
// repeated adds idempotent while still letting foreign-key violations
// (an edge to a user that does not exist) fail the caller's
// transaction.
func AddMembers(tx *gorm.DB, groupID string, userIDs []string) error {
	for _, userID := range userIDs {
		edge := models.GroupMember{GroupID: groupID, UserID: userID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
			return err
		}
	}
	return nil
}

// RemoveMember deletes one membership edge. Removing an edge that is
// not present is a no-op: membership removal is set difference, not
// assertion.
func RemoveMember(tx *gorm.DB, groupID, userID string) error {
	return tx.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{}).Error
}

// ReplaceMembers swaps the group's entire membership set by deleting
// every edge and inserting the new set. It must run inside the
// caller's transaction so the empty intermediate state is never
// observable.
func ReplaceMembers(tx *gorm.DB, groupID string, userIDs []string) error {
	if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
		return err
	}
	return AddMembers(tx, groupID, userIDs)
}

// MaterializeMembers builds the derived members attribute for a
// group, ordered ascending by user id so repeated reads of the same
// store state always agree.
func MaterializeMembers(db *gorm.DB, baseURL, groupID string) ([]GroupMember, error) {
	var edges []models.GroupMember
	if err := db.Where("group_id = ?", groupID).Order("user_id ASC").Preload("User").Find(&edges).Error; err != nil {
		return nil, err
	}

	members := make([]GroupMember, len(edges))
	for i, edge := range edges {
		members[i] = GroupMember{
			Value:   edge.UserID,
			Ref:     fmt.Sprintf("%s/scim/v2/Users/%s", baseURL, edge.UserID),
			Display: edge.User.UserName,
		}
	}
	return members, nil
}
