package handler

import (
	"context"
	"net/http"
	"time"

	"socialnet/backend/internal/identity"
	"socialnet/backend/internal/models"
	"socialnet/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// region --- DTOs ---

// UserResponse is a user's public profile.
type UserResponse struct {
	ID             string  `json:"id" example:"0190a5d2-7c4e-7b8a-9a4e-2f1d3c4b5a69"`
	Username       string  `json:"username" example:"alice"`
	Email          string  `json:"email" example:"alice@example.com"`
	ProfilePicture *string `json:"profilePicture"`
}

// UserSearchResponse is a search hit annotated with the caller's connection to it.
type UserSearchResponse struct {
	UserResponse
	IsConnected      bool    `json:"isConnected"`
	ConnectionStatus *string `json:"connectionStatus" example:"pending"`
}

// ProfilePictureInput names the image the client is about to upload.
type ProfilePictureInput struct {
	FileName    string `json:"fileName" binding:"required" example:"me.png"`
	ContentType string `json:"contentType" binding:"required" example:"image/png"`
}

// ProfilePictureConfirmInput names an uploaded object to use as the profile picture.
type ProfilePictureConfirmInput struct {
	Key string `json:"key" binding:"required" example:"profile-pics/0190a5d2-7c4e-7b8a-9a4e-2f1d3c4b5a69/20240301120000-me.png"`
}

// ProfilePictureUploadResponse carries the presigned upload.
type ProfilePictureUploadResponse struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key" example:"profile-pics/0190a5d2-7c4e-7b8a-9a4e-2f1d3c4b5a69/20240301120000-me.png"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// endregion

// userResponse builds the public profile. Picture keys become presigned read URLs.
func (h *Handler) userResponse(ctx context.Context, user models.User) UserResponse {
	response := UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	}
	if user.ProfilePicture != nil && h.pictures != nil {
		url, err := h.pictures.ReadURL(ctx, *user.ProfilePicture)
		if err != nil {
			h.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to presign profile picture")
		} else {
			response.ProfilePicture = &url
		}
	}
	return response
}

// GetProfile godoc
// @Summary      Get current user's profile
// @Description  Retrieves the profile of the currently authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /user/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.users.ResolveUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.userResponse(c.Request.Context(), *user))
}

// CreateProfilePictureUpload godoc
// @Summary      Upload a profile picture
// @Description  Returns a presigned URL the client PUTs the image to. Confirm the returned key once the upload succeeds.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ProfilePictureInput true "Image to upload"
// @Success      200  {object}  ProfilePictureUploadResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse "Profile pictures are not configured"
// @Router       /user/profile/picture [post]
func (h *Handler) CreateProfilePictureUpload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if h.pictures == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Profile pictures are not configured"})
		return
	}

	var input ProfilePictureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upload, err := h.pictures.UploadURL(c.Request.Context(), userID, input.FileName, input.ContentType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ProfilePictureUploadResponse{
		UploadURL: upload.URL,
		Key:       upload.Key,
		ExpiresAt: upload.ExpiresAt,
	})
}

// ConfirmProfilePicture godoc
// @Summary      Set the uploaded profile picture
// @Description  Records an object key issued by the upload endpoint as the caller's profile picture.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ProfilePictureConfirmInput true "Uploaded object"
// @Success      200  {object}  UserResponse
// @Failure      400  {object}  ErrorResponse "Key was not issued to the caller"
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse "Profile pictures are not configured"
// @Router       /user/profile/picture [put]
func (h *Handler) ConfirmProfilePicture(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if h.pictures == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Profile pictures are not configured"})
		return
	}

	var input ProfilePictureConfirmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !storage.OwnsKey(userID, input.Key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Profile picture key was not issued to you"})
		return
	}

	ctx := c.Request.Context()
	if err := h.users.SetProfilePicture(ctx, userID, input.Key); err != nil {
		h.respondError(c, err)
		return
	}
	user, err := h.users.ResolveUser(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.userResponse(ctx, *user))
}

// SearchUsers godoc
// @Summary      Search for users
// @Description  Finds up to 20 other users whose username or email contains the term, with the caller's connection status to each.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        searchTerm  query     string  false  "Part of a username or email"
// @Success      200         {array}   UserSearchResponse
// @Failure      401         {object}  ErrorResponse
// @Failure      500         {object}  ErrorResponse
// @Router       /user/search [get]
func (h *Handler) SearchUsers(c *gin.Context) {
	viewerID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	users, err := h.users.Search(ctx, viewerID, c.Query("searchTerm"), identity.MaxSearchResults)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	statuses, err := h.connections.Statuses(ctx, viewerID, ids)
	if err != nil {
		h.respondError(c, err)
		return
	}

	results := make([]UserSearchResponse, 0, len(users))
	for _, u := range users {
		result := UserSearchResponse{UserResponse: h.userResponse(ctx, u)}
		if status, ok := statuses[u.ID]; ok {
			s := string(status)
			result.ConnectionStatus = &s
			result.IsConnected = status == models.ConnectionAccepted
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, results)
}
