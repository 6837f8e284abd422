package scim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coleleep/scimgate/pkg/scimgate/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserHandler handles SCIM User operations
type UserHandler struct {
	db      *gorm.DB
	store   *UserStore
	baseURL string
}

// NewUserHandler creates a new SCIM User handler
func NewUserHandler(db *gorm.DB, baseURL string) *UserHandler {
	return &UserHandler{db: db, store: NewUserStore(db), baseURL: baseURL}
}

func (h *UserHandler) userLocation(id string) string {
	return fmt.Sprintf("%s/scim/v2/Users/%s", h.baseURL, id)
}

// listParams extracts startIndex and count from the query string,
// applying the protocol defaults (1-based index, page size 100,
// capped at the advertised maxResults).
func listParams(c *gin.Context) (startIndex, count int) {
	startIndex, _ = strconv.Atoi(c.DefaultQuery("startIndex", "1"))
	count, _ = strconv.Atoi(c.DefaultQuery("count", "100"))

	if startIndex < 1 {
		startIndex = 1
	}
	if count < 1 {
		count = 100
	}
	if count > 1000 {
		count = 1000
	}
	return startIndex, count
}

// ListUsers returns a page of users (GET /scim/v2/Users).
// Unsupported filters deliberately fall back to the unfiltered list.
func (h *UserHandler) ListUsers(c *gin.Context) {
	startIndex, count := listParams(c)

	var pred *Predicate
	if filter := c.Query("filter"); filter != "" {
		pred, _ = ParseFilter(filter)
	}

	users, total, err := h.store.List(pred, startIndex, count)
	if err != nil {
		respondError(c, err, kindUser)
		return
	}

	// The stored documents are the canonical resources; return them
	// verbatim rather than re-deriving them from the shadow columns.
	resources := make([]json.RawMessage, len(users))
	for i, user := range users {
		resources[i] = json.RawMessage(user.Document)
	}

	c.JSON(http.StatusOK, ListResponse{
		Schemas:      []string{SchemaListResponse},
		TotalResults: int(total),
		StartIndex:   startIndex,
		ItemsPerPage: len(resources),
		Resources:    resources,
	})
}

// GetUser returns a single user (GET /scim/v2/Users/:id)
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, kindUser)
		return
	}
	c.JSON(http.StatusOK, json.RawMessage(user.Document))
}

// CreateUser creates a new user (POST /scim/v2/Users)
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), "invalidSyntax")
		return
	}

	if req.UserName == "" {
		writeError(c, http.StatusBadRequest, "userName is required", "invalidValue")
		return
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	doc := User{
		Schemas:     []string{SchemaUser},
		ID:          id,
		UserName:    req.UserName,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Emails:      req.Emails,
		Active:      req.Active == nil || *req.Active,
		Meta: Meta{
			ResourceType: "User",
			Created:      &now,
			LastModified: &now,
			Location:     h.userLocation(id),
		},
		Extensions: req.Extensions,
	}
	if doc.Emails == nil {
		doc.Emails = []Email{}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		respondError(c, err, kindUser)
		return
	}

	user := &models.User{ID: id, UserName: doc.UserName, Active: doc.Active, Document: raw}
	if err := h.store.Create(user); err != nil {
		respondError(c, err, kindUser)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ReplaceUser replaces a user (PUT /scim/v2/Users/:id). The id in the
// body, if any, is ignored in favor of the path; meta.created is
// preserved from the existing document.
func (h *UserHandler) ReplaceUser(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.store.Get(id)
	if err != nil {
		respondError(c, err, kindUser)
		return
	}
	existingDoc, err := decodeUserDocument(existing)
	if err != nil {
		respondError(c, err, kindUser)
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), "invalidSyntax")
		return
	}
	if req.UserName == "" {
		writeError(c, http.StatusBadRequest, "userName is required", "invalidValue")
		return
	}

	now := time.Now().UTC()
	schemas := req.Schemas
	if len(schemas) == 0 {
		schemas = existingDoc.Schemas
	}
	doc := User{
		Schemas:     schemas,
		ID:          id,
		UserName:    req.UserName,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Emails:      req.Emails,
		Active:      req.Active == nil || *req.Active,
		Meta: Meta{
			ResourceType: "User",
			Created:      existingDoc.Meta.Created,
			LastModified: &now,
			Location:     h.userLocation(id),
		},
		Extensions: req.Extensions,
	}
	if doc.Emails == nil {
		doc.Emails = []Email{}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		respondError(c, err, kindUser)
		return
	}

	if err := h.store.Replace(h.db, id, doc.UserName, doc.Active, raw); err != nil {
		respondError(c, err, kindUser)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// PatchUser applies a PATCH operation list to a user
// (PATCH /scim/v2/Users/:id). The only attribute this slice of the
// protocol mutates is active; everything else is skipped. Success has
// no response body.
func (h *UserHandler) PatchUser(c *gin.Context) {
	user, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err, kindUser)
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

	change, err := resolveUserOperations(patch.Operations)
	if err != nil {
		respondError(c, err, kindUser)
		return
	}
	if change.active == nil {
		// Nothing in the request touches an attribute we manage.
		c.Status(http.StatusNoContent)
		return
	}

	doc, err := decodeUserDocument(user)
	if err != nil {
		respondError(c, err, kindUser)
		return
	}

	now := time.Now().UTC()
	doc.Active = *change.active
	doc.Meta.LastModified = &now

	raw, err := json.Marshal(doc)
	if err != nil {
		respondError(c, err, kindUser)
		return
	}

	if err := h.store.Replace(h.db, user.ID, doc.UserName, doc.Active, raw); err != nil {
		respondError(c, err, kindUser)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteUser deletes a user (DELETE /scim/v2/Users/:id). Membership
// edges cascade with the row.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		respondError(c, err, kindUser)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers SCIM User routes
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/Users", h.ListUsers)
	rg.GET("/Users/:id", h.GetUser)
	rg.POST("/Users", h.CreateUser)
	rg.PUT("/Users/:id", h.ReplaceUser)
	rg.PATCH("/Users/:id", h.PatchUser)
	rg.DELETE("/Users/:id", h.DeleteUser)
}
