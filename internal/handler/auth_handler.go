package handler

import (
	"net/http"

	"socialnet/backend/internal/auth"
	"socialnet/backend/internal/identity"
	"socialnet/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Username string `json:"username" binding:"required,max=255" example:"alice"`
	Email    string `json:"email" binding:"required,email,max=255" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"Passw0rd!"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"Passw0rd!"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Success  bool   `json:"success" example:"true"`
	Message  string `json:"message" example:"Login successful"`
	Token    string `json:"token"`
	UserID   string `json:"userId" example:"0190a5d2-7c4e-7b8a-9a4e-2f1d3c4b5a69"`
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"alice@example.com"`
}

// endregion

func (h *Handler) issueToken(c *gin.Context, user *models.User, status int, message string) {
	token, _, err := h.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(status, AuthResponse{
		Success:  true,
		Message:  message,
		Token:    token,
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token. Passwords need at least 6 characters with a digit, a lowercase letter, an uppercase letter and a symbol.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  ErrorResponse "Invalid input, weak password, or email/username taken"
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), identity.RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	h.issueToken(c, user, http.StatusOK, "Registration successful")
}

// Login godoc
// @Summary      Log in a user
// @Description  Authenticates a user with email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.issueToken(c, user, http.StatusOK, "Login successful")
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the token used for this request.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  AuthResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	claims, ok := auth.Claims(c)
	if !ok || claims.ExpiresAt == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx := c.Request.Context()
	if err := h.sessions.Revoke(ctx, claims.ID, userID, claims.ExpiresAt.Time); err != nil {
		h.respondError(c, err)
		return
	}
	if purged, err := h.sessions.PurgeExpired(ctx); err != nil {
		h.log.Warn().Err(err).Msg("failed to purge revoked tokens")
	} else if purged > 0 {
		h.log.Debug().Int64("purged", purged).Msg("purged expired revocations")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}
