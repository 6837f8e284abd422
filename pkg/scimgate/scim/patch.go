package scim

import (
	"strings"
)

// PATCH interpretation is two-phase: resolve lowers the raw operation
// list into typed changes, rejecting malformed input before any store
// interaction; apply (in the handlers) then runs the changes inside a
// single transaction, so a request's operations commit or roll back
// as one unit.
//
// Operations outside the supported subset resolve to nothing and are
// silently skipped, which tolerates provisioning clients that send
// attributes we do not manage. Lenience covers semantics we
// do not implement, never unparseable input: a path or value that
// fails to parse is a validation error.

type groupChangeKind int

const (
	groupAddMembers groupChangeKind = iota
	groupRemoveMember
	groupReplaceMembers
	groupRename
)

// groupChange is one resolved effect on a Group.
type groupChange struct {
	kind    groupChangeKind
	userIDs []string // addMembers, replaceMembers
	userID  string   // removeMember
	name    string   // rename
}

// resolveGroupOperations validates and lowers a Group PATCH operation
// list.
func resolveGroupOperations(ops []PatchOperation) ([]groupChange, error) {
	var changes []groupChange
	for _, op := range ops {
		path, err := ParsePath(op.Path)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(op.Op) {
		case "add":
			if !strings.EqualFold(path.Attribute, "members") || path.Filter != nil {
				continue
			}
			ids, err := memberValues(op.Value)
			if err != nil {
				return nil, err
			}
			if len(ids) > 0 {
				changes = append(changes, groupChange{kind: groupAddMembers, userIDs: ids})
			}

		case "remove":
			if !strings.EqualFold(path.Attribute, "members") {
				continue
			}
			if path.Filter == nil {
				// Bare `members` removes every member.
				changes = append(changes, groupChange{kind: groupReplaceMembers})
				continue
			}
			if !strings.EqualFold(path.Filter.Attribute, "value") {
				return nil, validationErrorf("unsupported member filter attribute %q", path.Filter.Attribute)
			}
			changes = append(changes, groupChange{kind: groupRemoveMember, userID: path.Filter.Value})

		case "replace":
			switch {
			case strings.EqualFold(path.Attribute, "displayName"):
				name, ok := op.Value.(string)
				if !ok {
					return nil, validationErrorf("displayName value must be a string")
				}
				changes = append(changes, groupChange{kind: groupRename, name: name})
			case strings.EqualFold(path.Attribute, "members") && path.Filter == nil:
				ids, err := memberValues(op.Value)
				if err != nil {
					return nil, err
				}
				changes = append(changes, groupChange{kind: groupReplaceMembers, userIDs: ids})
			case path.Attribute == "":
				// No path: the value object carries the attributes.
				attrs, ok := op.Value.(map[string]interface{})
				if !ok {
					return nil, validationErrorf("replace without a path requires an object value")
				}
				if name, ok := attrs["displayName"].(string); ok {
					changes = append(changes, groupChange{kind: groupRename, name: name})
				}
			}
		}
	}
	return changes, nil
}

// memberValues extracts user ids from a PATCH member value, which
// arrives either as [{"value": "<id>"}, ...] or as a single such
// object.
func memberValues(v interface{}) ([]string, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		ids := make([]string, 0, len(value))
		for _, entry := range value {
			id, err := memberValue(entry)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	case map[string]interface{}:
		id, err := memberValue(value)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	default:
		return nil, validationErrorf("members value must be an object or an array of objects")
	}
}

func memberValue(entry interface{}) (string, error) {
	obj, ok := entry.(map[string]interface{})
	if !ok {
		return "", validationErrorf("member entries must be objects")
	}
	id, ok := obj["value"].(string)
	if !ok || id == "" {
		return "", validationErrorf("member entries must carry a string value")
	}
	return id, nil
}

// userChange is the resolved effect of a User PATCH; the only
// attribute this slice of the protocol mutates is active.
type userChange struct {
	active *bool
}

// resolveUserOperations validates and lowers a User PATCH operation
// list. Later operations win when several touch active, matching the
// sequential application order the protocol prescribes.
func resolveUserOperations(ops []PatchOperation) (userChange, error) {
	var change userChange
	for _, op := range ops {
		path, err := ParsePath(op.Path)
		if err != nil {
			return userChange{}, err
		}

		switch strings.ToLower(op.Op) {
		case "replace", "add":
			switch {
			case strings.EqualFold(path.Attribute, "active") && path.Filter == nil:
				active, ok := op.Value.(bool)
				if !ok {
					return userChange{}, validationErrorf("active value must be a boolean")
				}
				change.active = &active
			case path.Attribute == "":
				attrs, ok := op.Value.(map[string]interface{})
				if !ok {
					return userChange{}, validationErrorf("replace without a path requires an object value")
				}
				if raw, present := attrs["active"]; present {
					active, ok := raw.(bool)
					if !ok {
						return userChange{}, validationErrorf("active value must be a boolean")
					}
					change.active = &active
				}
			}
		}
	}
	return change, nil
}
