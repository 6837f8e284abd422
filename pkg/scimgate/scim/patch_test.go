package scim

import (
	"errors"
	"strings"
	"testing"

	"github.com/coleleep/scimgate/pkg/scimgate/models"
	"gorm.io/gorm"
)

func TestResolveGroupOperationsAddMembers(t *testing.T) {
	ops := []PatchOperation{
		{
			Op:   "add",
			Path: "members",
			Value: []interface{}{
				map[string]interface{}{"value": "u1"},
				map[string]interface{}{"value": "u2"},
			},
		},
	}

	changes, err := resolveGroupOperations(ops)
	if err != nil {
		t.Fatalf("resolveGroupOperations failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("Expected 1 change, got %d", len(changes))
	}
	if changes[0].kind != groupAddMembers {
		t.Errorf("Expected groupAddMembers, got %v", changes[0].kind)
	}
	if len(changes[0].userIDs) != 2 || changes[0].userIDs[0] != "u1" || changes[0].userIDs[1] != "u2" {
		t.Errorf("Expected user ids [u1 u2], got %v", changes[0].userIDs)
	}
}

func TestResolveGroupOperationsAddSingleObject(t *testing.T) {
	ops := []PatchOperation{
		{Op: "Add", Path: "members", Value: map[string]interface{}{"value": "u1"}},
	}

	changes, err := resolveGroupOperations(ops)
	if err != nil {
		t.Fatalf("resolveGroupOperations failed: %v", err)
	}
	if len(changes) != 1 || changes[0].kind != groupAddMembers || len(changes[0].userIDs) != 1 {
		t.Fatalf("Expected a single add change, got %+v", changes)
	}
}

func TestResolveGroupOperationsRemove(t *testing.T) {
	ops := []PatchOperation{
		{Op: "remove", Path: `members[value eq "u1"]`},
	}

	changes, err := resolveGroupOperations(ops)
	if err != nil {
		t.Fatalf("resolveGroupOperations failed: %v", err)
	}
	if len(changes) != 1 || changes[0].kind != groupRemoveMember || changes[0].userID != "u1" {
		t.Fatalf("Expected remove of u1, got %+v", changes)
	}
}

func TestResolveGroupOperationsRemoveAll(t *testing.T) {
	ops := []PatchOperation{
		{Op: "remove", Path: "members"},
	}

	changes, err := resolveGroupOperations(ops)
	if err != nil {
		t.Fatalf("resolveGroupOperations failed: %v", err)
	}
	if len(changes) != 1 || changes[0].kind != groupReplaceMembers || len(changes[0].userIDs) != 0 {
		t.Fatalf("Expected replace with empty set, got %+v", changes)
	}
}

func TestResolveGroupOperationsRename(t *testing.T) {
	ops := []PatchOperation{
		{Op: "replace", Path: "displayName", Value: "New Name"},
		{Op: "replace", Value: map[string]interface{}{"displayName": "Newer Name"}},
	}

	changes, err := resolveGroupOperations(ops)
	if err != nil {
		t.Fatalf("resolveGroupOperations failed: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("Expected 2 changes, got %d", len(changes))
	}
	if changes[0].kind != groupRename || changes[0].name != "New Name" {
		t.Errorf("Expected rename to 'New Name', got %+v", changes[0])
	}
	if changes[1].kind != groupRename || changes[1].name != "Newer Name" {
		t.Errorf("Expected rename to 'Newer Name', got %+v", changes[1])
	}
}

func TestResolveGroupOperationsUnknownSkipped(t *testing.T) {
	ops := []PatchOperation{
		{Op: "replace", Path: "externalId", Value: "ext-1"},
		{Op: "add", Path: "displayName", Value: "X"},
		{Op: "move", Path: "members", Value: "whatever"},
	}

	changes, err := resolveGroupOperations(ops)
	if err != nil {
		t.Fatalf("resolveGroupOperations failed: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("Expected unsupported operations to be skipped, got %+v", changes)
	}
}

func TestResolveGroupOperationsInvalid(t *testing.T) {
	tests := []struct {
		name string
		op   PatchOperation
	}{
		{"malformed path", PatchOperation{Op: "remove", Path: `members[value eq`}},
		{"non-value member filter", PatchOperation{Op: "remove", Path: `members[display eq "x"]`}},
		{"displayName not a string", PatchOperation{Op: "replace", Path: "displayName", Value: 42}},
		{"member entry not an object", PatchOperation{Op: "add", Path: "members", Value: []interface{}{"u1"}}},
		{"member entry without value", PatchOperation{Op: "add", Path: "members", Value: []interface{}{map[string]interface{}{"display": "x"}}}},
		{"pathless replace with scalar", PatchOperation{Op: "replace", Value: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveGroupOperations([]PatchOperation{tt.op})
			if err == nil {
				t.Fatalf("Expected error, got nil")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestResolveUserOperations(t *testing.T) {
	ops := []PatchOperation{
		{Op: "replace", Path: "active", Value: false},
	}

	change, err := resolveUserOperations(ops)
	if err != nil {
		t.Fatalf("resolveUserOperations failed: %v", err)
	}
	if change.active == nil || *change.active != false {
		t.Fatalf("Expected active=false, got %+v", change)
	}
}

func TestResolveUserOperationsPathless(t *testing.T) {
	ops := []PatchOperation{
		{Op: "replace", Value: map[string]interface{}{"active": true}},
	}

	change, err := resolveUserOperations(ops)
	if err != nil {
		t.Fatalf("resolveUserOperations failed: %v", err)
	}
	if change.active == nil || *change.active != true {
		t.Fatalf("Expected active=true, got %+v", change)
	}
}

func TestResolveUserOperationsLastWins(t *testing.T) {
	ops := []PatchOperation{
		{Op: "replace", Path: "active", Value: false},
		{Op: "replace", Path: "active", Value: true},
	}

	change, err := resolveUserOperations(ops)
	if err != nil {
		t.Fatalf("resolveUserOperations failed: %v", err)
	}
	if change.active == nil || *change.active != true {
		t.Fatalf("Expected the later operation to win, got %+v", change)
	}
}

func TestResolveUserOperationsUnknownSkipped(t *testing.T) {
	ops := []PatchOperation{
		{Op: "replace", Path: "nickName", Value: "x"},
		{Op: "remove", Path: "displayName"},
	}

	change, err := resolveUserOperations(ops)
	if err != nil {
		t.Fatalf("resolveUserOperations failed: %v", err)
	}
	if change.active != nil {
		t.Errorf("Expected no change, got %+v", change)
	}
}

func TestResolveUserOperationsInvalid(t *testing.T) {
	ops := []PatchOperation{
		{Op: "replace", Path: "active", Value: "false"},
	}

	_, err := resolveUserOperations(ops)
	if err == nil {
		t.Fatal("Expected error for non-boolean active, got nil")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

// Membership synchronizer tests

func countEdges(t *testing.T, db *gorm.DB, groupID string) int64 {
	var count int64
	if err := db.Model(&models.GroupMember{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count edges: %v", err)
	}
	return count
}

func TestAddMembersIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "u1@test.com")
	group := seedGroup(t, db, "Engineering")

	if err := AddMembers(db, group.ID, []string{user.ID}); err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if err := AddMembers(db, group.ID, []string{user.ID}); err != nil {
		t.Fatalf("Repeated AddMembers failed: %v", err)
	}

	if n := countEdges(t, db, group.ID); n != 1 {
		t.Errorf("Expected 1 edge after repeated add, got %d", n)
	}
}

func TestAddMembersUnknownUserRollsBack(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "u1@test.com")
	user2 := seedUser(t, db, "u2@test.com")
	group := seedGroup(t, db, "Engineering")

	if err := AddMembers(db, group.ID, []string{user.ID}); err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return AddMembers(tx, group.ID, []string{user2.ID, "no-such-user"})
	})
	if err == nil {
		t.Fatal("Expected foreign key violation, got nil")
	}

	// The valid edge added in the failed transaction must be gone too.
	if n := countEdges(t, db, group.ID); n != 1 {
		t.Errorf("Expected 1 edge after rollback, got %d", n)
	}
}

func TestRemoveMemberAbsent(t *testing.T) {
	db := setupTestDB(t)
	group := seedGroup(t, db, "Engineering")

	if err := RemoveMember(db, group.ID, "no-such-user"); err != nil {
		t.Errorf("Removing an absent member should be a no-op, got %v", err)
	}
}

func TestReplaceMembers(t *testing.T) {
	db := setupTestDB(t)
	u1 := seedUser(t, db, "u1@test.com")
	u2 := seedUser(t, db, "u2@test.com")
	group := seedGroup(t, db, "Engineering")

	if err := AddMembers(db, group.ID, []string{u1.ID}); err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	if err := ReplaceMembers(db, group.ID, []string{u2.ID}); err != nil {
		t.Fatalf("ReplaceMembers failed: %v", err)
	}

	var edges []models.GroupMember
	db.Where("group_id = ?", group.ID).Find(&edges)
	if len(edges) != 1 || edges[0].UserID != u2.ID {
		t.Errorf("Expected membership set {%s}, got %+v", u2.ID, edges)
	}
}

func TestMaterializeMembersOrder(t *testing.T) {
	db := setupTestDB(t)
	group := seedGroup(t, db, "Engineering")

	b := seedUserWithID(t, db, "bbb", "b@test.com")
	a := seedUserWithID(t, db, "aaa", "a@test.com")
	c := seedUserWithID(t, db, "ccc", "c@test.com")

	if err := AddMembers(db, group.ID, []string{b.ID, c.ID, a.ID}); err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}

	members, err := MaterializeMembers(db, "http://localhost:8080", group.ID)
	if err != nil {
		t.Fatalf("MaterializeMembers failed: %v", err)
	}

	if len(members) != 3 {
		t.Fatalf("Expected 3 members, got %d", len(members))
	}
	if members[0].Value != "aaa" || members[1].Value != "bbb" || members[2].Value != "ccc" {
		t.Errorf("Expected members ordered by user id, got %+v", members)
	}
	if members[0].Display != "a@test.com" {
		t.Errorf("Expected display from userName, got %q", members[0].Display)
	}
	if !strings.HasSuffix(members[0].Ref, "/scim/v2/Users/aaa") {
		t.Errorf("Unexpected $ref %q", members[0].Ref)
	}
}
