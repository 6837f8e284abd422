package scim

import (
	"encoding/json"
	"time"
)

// SCIM 2.0 Schema URIs
const (
	SchemaUser            = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaGroup           = "urn:ietf:params:scim:schemas:core:2.0:Group"
	SchemaListResponse    = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	SchemaError           = "urn:ietf:params:scim:api:messages:2.0:Error"
	SchemaPatchOp         = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	SchemaServiceProvider = "urn:ietf:params:scim:schemas:core:2.0:ServiceProviderConfig"
	SchemaResourceType    = "urn:ietf:params:scim:schemas:core:2.0:ResourceType"
	SchemaSchema          = "urn:ietf:params:scim:schemas:core:2.0:Schema"
)

// Meta contains resource metadata
type Meta struct {
	ResourceType string     `json:"resourceType"`
	Created      *time.Time `json:"created,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	Location     string     `json:"location,omitempty"`
	Version      string     `json:"version,omitempty"`
}

// Name represents a user's name
type Name struct {
	Formatted       string `json:"formatted,omitempty"`
	FamilyName      string `json:"familyName,omitempty"`
	GivenName       string `json:"givenName,omitempty"`
	MiddleName      string `json:"middleName,omitempty"`
	HonorificPrefix string `json:"honorificPrefix,omitempty"`
	HonorificSuffix string `json:"honorificSuffix,omitempty"`
}

// Email represents a user's email
type Email struct {
	Value   string `json:"value"`
	Type    string `json:"type,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// unknownFields returns the top-level members of data whose keys are
// not in known, or nil if there are none.
func unknownFields(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

var userKnownFields = []string{"schemas", "id", "userName", "name", "displayName", "emails", "active", "meta"}

// User represents a SCIM User resource. Attributes outside the closed
// schema are preserved in Extensions and written back verbatim when
// the resource is marshaled, so provisioning clients can round-trip
// enterprise extension attributes the core does not interpret.
type User struct {
	Schemas     []string `json:"schemas"`
	ID          string   `json:"id"`
	UserName    string   `json:"userName"`
	Name        Name     `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Emails      []Email  `json:"emails"`
	Active      bool     `json:"active"`
	Meta        Meta     `json:"meta"`

	Extensions map[string]json.RawMessage `json:"-"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, userKnownFields...)
	if err != nil {
		return err
	}
	a.Extensions = extra
	*u = User(a)
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	base, err := json.Marshal(alias(u))
	if err != nil {
		return nil, err
	}
	if len(u.Extensions) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range u.Extensions {
		// Known attributes always win over stale extension entries.
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// GroupMember represents a member in a SCIM Group
type GroupMember struct {
	Value   string `json:"value"`
	Ref     string `json:"$ref,omitempty"`
	Display string `json:"display,omitempty"`
}

var groupKnownFields = []string{"schemas", "id", "displayName", "members", "meta"}

// Group represents a SCIM Group resource. Members is always derived
// from the membership relation at read time; the persisted document
// never carries it. Unknown attributes round-trip through Extensions
// the same way they do for User.
type Group struct {
	Schemas     []string      `json:"schemas"`
	ID          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	Members     []GroupMember `json:"members,omitempty"`
	Meta        Meta          `json:"meta"`

	Extensions map[string]json.RawMessage `json:"-"`
}

func (g *Group) UnmarshalJSON(data []byte) error {
	type alias Group
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, groupKnownFields...)
	if err != nil {
		return err
	}
	a.Extensions = extra
	*g = Group(a)
	return nil
}

func (g Group) MarshalJSON() ([]byte, error) {
	type alias Group
	base, err := json.Marshal(alias(g))
	if err != nil {
		return nil, err
	}
	if len(g.Extensions) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range g.Extensions {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// CreateUserRequest represents a SCIM user creation or replacement
// body. Active is a pointer so an absent attribute can default to
// true, matching provisioning clients that omit it on create.
type CreateUserRequest struct {
	Schemas     []string `json:"schemas"`
	UserName    string   `json:"userName"`
	Name        Name     `json:"name"`
	DisplayName string   `json:"displayName"`
	Emails      []Email  `json:"emails"`
	Active      *bool    `json:"active"`

	Extensions map[string]json.RawMessage `json:"-"`
}

func (r *CreateUserRequest) UnmarshalJSON(data []byte) error {
	type alias CreateUserRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, userKnownFields...)
	if err != nil {
		return err
	}
	a.Extensions = extra
	*r = CreateUserRequest(a)
	return nil
}

// CreateGroupRequest represents a SCIM group creation or replacement
// body. Members, when present, is the requested membership set to be
// reconciled into the relation.
type CreateGroupRequest struct {
	Schemas     []string      `json:"schemas"`
	DisplayName string        `json:"displayName"`
	Members     []GroupMember `json:"members"`

	Extensions map[string]json.RawMessage `json:"-"`
}

func (r *CreateGroupRequest) UnmarshalJSON(data []byte) error {
	type alias CreateGroupRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, groupKnownFields...)
	if err != nil {
		return err
	}
	a.Extensions = extra
	*r = CreateGroupRequest(a)
	return nil
}

// ListResponse represents a SCIM list response
type ListResponse struct {
	Schemas      []string    `json:"schemas"`
	TotalResults int         `json:"totalResults"`
	StartIndex   int         `json:"startIndex"`
	ItemsPerPage int         `json:"itemsPerPage"`
	Resources    interface{} `json:"Resources"`
}

// ErrorResponse represents a SCIM error response
type ErrorResponse struct {
	Schemas  []string `json:"schemas"`
	Detail   string   `json:"detail"`
	Status   string   `json:"status"`
	ScimType string   `json:"scimType,omitempty"`
}

// PatchOp represents a SCIM PATCH request body
type PatchOp struct {
	Schemas    []string         `json:"schemas"`
	Operations []PatchOperation `json:"Operations"`
}

// PatchOperation represents a single operation in a PATCH request
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// ServiceProviderConfig represents SCIM service provider configuration
type ServiceProviderConfig struct {
	Schemas               []string               `json:"schemas"`
	DocumentationURI      string                 `json:"documentationUri,omitempty"`
	Patch                 SupportedConfig        `json:"patch"`
	Bulk                  BulkConfig             `json:"bulk"`
	Filter                FilterConfig           `json:"filter"`
	ChangePassword        SupportedConfig        `json:"changePassword"`
	Sort                  SupportedConfig        `json:"sort"`
	Etag                  SupportedConfig        `json:"etag"`
	AuthenticationSchemes []AuthenticationScheme `json:"authenticationSchemes"`
	Meta                  Meta                   `json:"meta"`
}

// SupportedConfig indicates if a feature is supported
type SupportedConfig struct {
	Supported bool `json:"supported"`
}

// BulkConfig represents bulk operation configuration
type BulkConfig struct {
	Supported      bool `json:"supported"`
	MaxOperations  int  `json:"maxOperations"`
	MaxPayloadSize int  `json:"maxPayloadSize"`
}

// FilterConfig represents filter configuration
type FilterConfig struct {
	Supported  bool `json:"supported"`
	MaxResults int  `json:"maxResults"`
}

// AuthenticationScheme represents an authentication scheme
type AuthenticationScheme struct {
	Type             string `json:"type"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	SpecURI          string `json:"specUri,omitempty"`
	DocumentationURI string `json:"documentationUri,omitempty"`
	Primary          bool   `json:"primary,omitempty"`
}

// ResourceType represents a SCIM resource type
type ResourceType struct {
	Schemas          []string          `json:"schemas"`
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Endpoint         string            `json:"endpoint"`
	Description      string            `json:"description"`
	Schema           string            `json:"schema"`
	SchemaExtensions []SchemaExtension `json:"schemaExtensions,omitempty"`
	Meta             Meta              `json:"meta"`
}

// SchemaExtension represents a schema extension
type SchemaExtension struct {
	Schema   string `json:"schema"`
	Required bool   `json:"required"`
}
