package scim

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/coleleep/scimgate/pkg/scimgate/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ConfigHandler handles SCIM discovery endpoints
type ConfigHandler struct {
	baseURL string
}

// NewConfigHandler creates a new SCIM config handler
func NewConfigHandler(baseURL string) *ConfigHandler {
	return &ConfigHandler{baseURL: baseURL}
}

// GetServiceProviderConfig returns the service provider configuration.
// The advertised capabilities match what the endpoints actually do:
// patch and (restricted) filtering are supported, nothing else is.
func (h *ConfigHandler) GetServiceProviderConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ServiceProviderConfig{
		Schemas: []string{SchemaServiceProvider},
		Patch: SupportedConfig{
			Supported: true,
		},
		Bulk: BulkConfig{
			Supported:      false,
			MaxOperations:  0,
			MaxPayloadSize: 0,
		},
		Filter: FilterConfig{
			Supported:  true,
			MaxResults: 1000,
		},
		ChangePassword: SupportedConfig{
			Supported: false,
		},
		Sort: SupportedConfig{
			Supported: false,
		},
		Etag: SupportedConfig{
			Supported: false,
		},
		AuthenticationSchemes: []AuthenticationScheme{
			{
				Type:        "oauthbearertoken",
				Name:        "OAuth Bearer Token",
				Description: "Authentication scheme using the OAuth Bearer Token Standard",
				SpecURI:     "https://www.rfc-editor.org/info/rfc6750",
				Primary:     true,
			},
		},
		Meta: Meta{
			ResourceType: "ServiceProviderConfig",
			Location:     h.baseURL + "/scim/v2/ServiceProviderConfig",
		},
	})
}

// GetResourceTypes returns the supported resource types
func (h *ConfigHandler) GetResourceTypes(c *gin.Context) {
	c.JSON(http.StatusOK, []ResourceType{
		{
			Schemas:     []string{SchemaResourceType},
			ID:          "User",
			Name:        "User",
			Endpoint:    "/Users",
			Description: "User Account",
			Schema:      SchemaUser,
			Meta: Meta{
				ResourceType: "ResourceType",
				Location:     h.baseURL + "/scim/v2/ResourceTypes/User",
			},
		},
		{
			Schemas:     []string{SchemaResourceType},
			ID:          "Group",
			Name:        "Group",
			Endpoint:    "/Groups",
			Description: "Group",
			Schema:      SchemaGroup,
			Meta: Meta{
				ResourceType: "ResourceType",
				Location:     h.baseURL + "/scim/v2/ResourceTypes/Group",
			},
		},
	})
}

// GetSchemas returns the supported schemas
func (h *ConfigHandler) GetSchemas(c *gin.Context) {
	// Return a simplified schema response
	c.JSON(http.StatusOK, ListResponse{
		Schemas:      []string{SchemaListResponse},
		TotalResults: 2,
		StartIndex:   1,
		ItemsPerPage: 2,
		Resources: []map[string]interface{}{
			{
				"id":          SchemaUser,
				"name":        "User",
				"description": "User Account",
				"attributes":  getUserSchemaAttributes(),
				"meta": map[string]string{
					"resourceType": "Schema",
					"location":     h.baseURL + "/scim/v2/Schemas/" + SchemaUser,
				},
			},
			{
				"id":          SchemaGroup,
				"name":        "Group",
				"description": "Group",
				"attributes":  getGroupSchemaAttributes(),
				"meta": map[string]string{
					"resourceType": "Schema",
					"location":     h.baseURL + "/scim/v2/Schemas/" + SchemaGroup,
				},
			},
		},
	})
}

func getUserSchemaAttributes() []map[string]interface{} {
	return []map[string]interface{}{
		{"name": "userName", "type": "string", "multiValued": false, "required": true, "caseExact": false, "mutability": "readWrite", "returned": "default", "uniqueness": "server"},
		{"name": "name", "type": "complex", "multiValued": false, "required": false, "mutability": "readWrite", "returned": "default"},
		{"name": "displayName", "type": "string", "multiValued": false, "required": false, "mutability": "readWrite", "returned": "default"},
		{"name": "emails", "type": "complex", "multiValued": true, "required": false, "mutability": "readWrite", "returned": "default"},
		{"name": "active", "type": "boolean", "multiValued": false, "required": false, "mutability": "readWrite", "returned": "default"},
	}
}

func getGroupSchemaAttributes() []map[string]interface{} {
	return []map[string]interface{}{
		{"name": "displayName", "type": "string", "multiValued": false, "required": true, "mutability": "readWrite", "returned": "default"},
		{"name": "members", "type": "complex", "multiValued": true, "required": false, "mutability": "readWrite", "returned": "default"},
	}
}

// RegisterRoutes registers SCIM discovery routes
func (h *ConfigHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ServiceProviderConfig", h.GetServiceProviderConfig)
	rg.GET("/ResourceTypes", h.GetResourceTypes)
	rg.GET("/Schemas", h.GetSchemas)
}

// Provisioning token management

// GenerateProvisioningToken creates a new bearer token for an identity
// provider. Only the SHA-256 hash is stored; the plaintext is returned
// once and never again.
func GenerateProvisioningToken(db *gorm.DB, description string) (string, *models.ProvisioningToken, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(tokenBytes)

	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	provToken := &models.ProvisioningToken{
		TokenHash:   tokenHash,
		TokenPrefix: token[:8],
		Description: description,
	}

	if err := db.Create(provToken).Error; err != nil {
		return "", nil, err
	}

	return token, provToken, nil
}

// ValidateProvisioningToken validates a provisioning bearer token
func ValidateProvisioningToken(db *gorm.DB, token string) (*models.ProvisioningToken, error) {
	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	var provToken models.ProvisioningToken
	if err := db.Where("token_hash = ?", tokenHash).First(&provToken).Error; err != nil {
		return nil, err
	}

	// Update last used (fire and forget)
	go func() {
		now := time.Now()
		db.Model(&provToken).Update("last_used_at", &now)
	}()

	return &provToken, nil
}

// SCIMAuthMiddleware authenticates SCIM requests using provisioning
// bearer tokens
func SCIMAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Schemas: []string{SchemaError},
				Detail:  "Authorization header required",
				Status:  "401",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Schemas: []string{SchemaError},
				Detail:  "Invalid authorization header format",
				Status:  "401",
			})
			c.Abort()
			return
		}

		if _, err := ValidateProvisioningToken(db, parts[1]); err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Schemas: []string{SchemaError},
				Detail:  "Invalid token",
				Status:  "401",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// TokenResponse represents a provisioning token in API responses
type TokenResponse struct {
	ID          uint       `json:"id"`
	TokenPrefix string     `json:"token_prefix"`
	Description string     `json:"description"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateTokenResponse includes the full token (only shown on creation)
type CreateTokenResponse struct {
	ID          uint      `json:"id"`
	Token       string    `json:"token"`
	TokenPrefix string    `json:"token_prefix"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TokenHandler handles provisioning token management (admin only)
type TokenHandler struct {
	db *gorm.DB
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(db *gorm.DB) *TokenHandler {
	return &TokenHandler{db: db}
}

// ListTokens returns all provisioning tokens
func (h *TokenHandler) ListTokens(c *gin.Context) {
	var tokens []models.ProvisioningToken
	h.db.Find(&tokens)

	responses := make([]TokenResponse, len(tokens))
	for i, t := range tokens {
		responses[i] = TokenResponse{
			ID:          t.ID,
			TokenPrefix: t.TokenPrefix,
			Description: t.Description,
			LastUsedAt:  t.LastUsedAt,
			CreatedAt:   t.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// CreateTokenRequest represents a request to create a provisioning token
type CreateTokenRequest struct {
	Description string `json:"description"`
}

// CreateToken creates a new provisioning token
func (h *TokenHandler) CreateToken(c *gin.Context) {
	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, provToken, err := GenerateProvisioningToken(h.db, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusCreated, CreateTokenResponse{
		ID:          provToken.ID,
		Token:       token,
		TokenPrefix: provToken.TokenPrefix,
		Description: provToken.Description,
		CreatedAt:   provToken.CreatedAt,
	})
}

// DeleteToken deletes a provisioning token
func (h *TokenHandler) DeleteToken(c *gin.Context) {
	id := c.Param("id")

	var token models.ProvisioningToken
	if err := h.db.First(&token, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
		return
	}

	h.db.Delete(&token)
	c.JSON(http.StatusOK, gin.H{"message": "Token deleted"})
}

// RegisterAdminRoutes registers provisioning token admin routes
func (h *TokenHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/scim-tokens", h.ListTokens)
	rg.POST("/scim-tokens", h.CreateToken)
	rg.DELETE("/scim-tokens/:id", h.DeleteToken)
}
