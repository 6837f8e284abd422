package scim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coleleep/scimgate/pkg/scimgate/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupHandler handles SCIM Group operations
type GroupHandler struct {
	db      *gorm.DB
	store   *GroupStore
	baseURL string
}

// NewGroupHandler creates a new SCIM Group handler
func NewGroupHandler(db *gorm.DB, baseURL string) *GroupHandler {
	return &GroupHandler{db: db, store: NewGroupStore(db), baseURL: baseURL}
}

func (h *GroupHandler) groupLocation(id string) string {
	return fmt.Sprintf("%s/scim/v2/Groups/%s", h.baseURL, id)
}

// ListGroups returns a page of groups (GET /scim/v2/Groups). The listed
// resources are the stored documents, which do not carry members;
// clients that need membership fetch the group by id.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	startIndex, count := listParams(c)

	var pred *Predicate
	if filter := c.Query("filter"); filter != "" {
		pred, _ = ParseFilter(filter)
	}

	groups, total, err := h.store.List(pred, startIndex, count)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	resources := make([]json.RawMessage, len(groups))
	for i, group := range groups {
		resources[i] = json.RawMessage(group.Document)
	}

	c.JSON(http.StatusOK, ListResponse{
		Schemas:      []string{SchemaListResponse},
		TotalResults: int(total),
		StartIndex:   startIndex,
		ItemsPerPage: len(resources),
		Resources:    resources,
	})
}

// GetGroup returns a single group with its members materialized from
// the membership relation (GET /scim/v2/Groups/:id).
func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	doc, err := decodeGroupDocument(group)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	doc.Members, err = MaterializeMembers(h.db, h.baseURL, group.ID)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// CreateGroup creates a new group (POST /scim/v2/Groups). Members in
// the request body are ignored: membership edges are established only
// through PATCH or PUT, so a create can never reference users that do
// not exist yet.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), "invalidSyntax")
		return
	}

	if req.DisplayName == "" {
		writeError(c, http.StatusBadRequest, "displayName is required", "invalidValue")
		return
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	doc := Group{
		Schemas:     []string{SchemaGroup},
		ID:          id,
		DisplayName: req.DisplayName,
		Meta: Meta{
			ResourceType: "Group",
			Created:      &now,
			LastModified: &now,
			Location:     h.groupLocation(id),
		},
		Extensions: req.Extensions,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	group := &models.Group{ID: id, DisplayName: doc.DisplayName, Document: raw}
	if err := h.store.Create(group); err != nil {
		respondError(c, err, kindGroup)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ReplaceGroup replaces a group and reconciles its membership set to
// the request body in one transaction (PUT /scim/v2/Groups/:id).
// meta.created is preserved from the existing document. A member value
// that does not resolve to a live user aborts the whole replacement.
func (h *GroupHandler) ReplaceGroup(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.store.Get(id)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}
	existingDoc, err := decodeGroupDocument(existing)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), "invalidSyntax")
		return
	}
	if req.DisplayName == "" {
		writeError(c, http.StatusBadRequest, "displayName is required", "invalidValue")
		return
	}

	now := time.Now().UTC()
	schemas := req.Schemas
	if len(schemas) == 0 {
		schemas = existingDoc.Schemas
	}
	doc := Group{
		Schemas:     schemas,
		ID:          id,
		DisplayName: req.DisplayName,
		Meta: Meta{
			ResourceType: "Group",
			Created:      existingDoc.Meta.Created,
			LastModified: &now,
			Location:     h.groupLocation(id),
		},
		Extensions: req.Extensions,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	memberIDs := make([]string, 0, len(req.Members))
	for _, m := range req.Members {
		if m.Value == "" {
			writeError(c, http.StatusBadRequest, "member entries must carry a string value", "invalidValue")
			return
		}
		memberIDs = append(memberIDs, m.Value)
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := h.store.Replace(tx, id, doc.DisplayName, raw); err != nil {
			return err
		}
		return ReplaceMembers(tx, id, memberIDs)
	})
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	doc.Members, err = MaterializeMembers(h.db, h.baseURL, id)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// PatchGroup applies a PATCH operation list to a group
// (PATCH /scim/v2/Groups/:id). All resolved changes plus the document
// rewrite run in one transaction; a failing change rolls back the
// whole request. Success has no response body.
func (h *GroupHandler) PatchGroup(c *gin.Context) {
	group, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	var patch PatchOp
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), "invalidSyntax")
		return
	}
	if len(patch.Operations) == 0 {
		writeError(c, http.StatusBadRequest, "PATCH request must contain 'Operations'", "invalidValue")
		return
	}

	changes, err := resolveGroupOperations(patch.Operations)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}
	if len(changes) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	doc, err := decodeGroupDocument(group)
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		for _, change := range changes {
			switch change.kind {
			case groupAddMembers:
				if err := AddMembers(tx, group.ID, change.userIDs); err != nil {
					return err
				}
			case groupRemoveMember:
				if err := RemoveMember(tx, group.ID, change.userID); err != nil {
					return err
				}
			case groupReplaceMembers:
				if err := ReplaceMembers(tx, group.ID, change.userIDs); err != nil {
					return err
				}
			case groupRename:
				doc.DisplayName = change.name
			}
		}

		now := time.Now().UTC()
		doc.Meta.LastModified = &now
		doc.Members = nil

		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return h.store.Replace(tx, group.ID, doc.DisplayName, raw)
	})
	if err != nil {
		respondError(c, err, kindGroup)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteGroup deletes a group and its membership edges
// (DELETE /scim/v2/Groups/:id).
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		respondError(c, err, kindGroup)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers SCIM Group routes
func (h *GroupHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/Groups", h.ListGroups)
	rg.GET("/Groups/:id", h.GetGroup)
	rg.POST("/Groups", h.CreateGroup)
	rg.PUT("/Groups/:id", h.ReplaceGroup)
	rg.PATCH("/Groups/:id", h.PatchGroup)
	rg.DELETE("/Groups/:id", h.DeleteGroup)
}
