package handler

import (
	"net/http"

	"socialnet/backend/internal/apperr"
	"socialnet/backend/internal/auth"
	"socialnet/backend/internal/connection"
	"socialnet/backend/internal/hub"
	"socialnet/backend/internal/identity"
	"socialnet/backend/internal/messaging"
	"socialnet/backend/internal/storage"
	"socialnet/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Deps are the services the HTTP layer calls into.
type Deps struct {
	Users       *identity.Store
	Tokens      *jwt.Authenticator
	Sessions    *auth.SessionStore
	Connections *connection.Manager
	Messages    *messaging.Service
	Hub         *hub.Hub
	Pictures    *storage.ProfilePictures // nil disables profile picture uploads
	Origins     []string                 // allowed websocket origins, "*" allows any
	Log         zerolog.Logger
}

// Handler serves the REST API.
type Handler struct {
	users       *identity.Store
	tokens      *jwt.Authenticator
	sessions    *auth.SessionStore
	connections *connection.Manager
	messages    *messaging.Service
	hub         *hub.Hub
	pictures    *storage.ProfilePictures
	origins     []string
	log         zerolog.Logger
}

// New creates a Handler.
func New(deps Deps) *Handler {
	return &Handler{
		users:       deps.Users,
		tokens:      deps.Tokens,
		sessions:    deps.Sessions,
		connections: deps.Connections,
		messages:    deps.Messages,
		hub:         deps.Hub,
		pictures:    deps.Pictures,
		origins:     deps.Origins,
		log:         deps.Log,
	}
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"Connection request sent"`
}

// respondError writes err with the status its kind maps to. Internal errors are
// logged and their details withheld.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

// currentUserID returns the caller set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return userID, ok
}

// uuidParam parses a path parameter holding a user or connection id.
func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}
