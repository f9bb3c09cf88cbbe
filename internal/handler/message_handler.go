package handler

import (
	"net/http"
	"time"

	"socialnet/backend/internal/hub"
	"socialnet/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// region --- DTOs ---

// SendMessageInput is a message to a connected user.
type SendMessageInput struct {
	ReceiverID string `json:"receiverId" binding:"required" example:"0190a5d2-7c4e-7b8a-9a4e-2f1d3c4b5a69"`
	Content    string `json:"content" example:"Hi there!"`
}

// DirectMessageResponse is a stored message with both participants' names.
type DirectMessageResponse struct {
	ID               string    `json:"id"`
	SenderID         string    `json:"senderId"`
	SenderUsername   string    `json:"senderUsername" example:"alice"`
	ReceiverID       string    `json:"receiverId"`
	ReceiverUsername string    `json:"receiverUsername" example:"bob"`
	Content          string    `json:"content" example:"Hi there!"`
	CreatedAt        time.Time `json:"createdAt"`
	IsRead           bool      `json:"isRead"`
}

// endregion

func newDirectMessageResponse(m models.Message) DirectMessageResponse {
	return DirectMessageResponse{
		ID:               m.ID.String(),
		SenderID:         m.SenderID.String(),
		SenderUsername:   m.Sender.Username,
		ReceiverID:       m.ReceiverID.String(),
		ReceiverUsername: m.Receiver.Username,
		Content:          m.Content,
		CreatedAt:        m.CreatedAt,
		IsRead:           m.IsRead,
	}
}

func newDirectMessageResponses(messages []models.Message) []DirectMessageResponse {
	responses := make([]DirectMessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, newDirectMessageResponse(m))
	}
	return responses
}

// SendMessage godoc
// @Summary      Send a message
// @Description  Sends a direct message to a connected user. Content must be non-blank and at most 4000 characters.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body SendMessageInput true "Message"
// @Success      200  {object}  DirectMessageResponse
// @Failure      400  {object}  ErrorResponse "Not connected, invalid id, or invalid content"
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Recipient not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /message [post]
func (h *Handler) SendMessage(c *gin.Context) {
	senderID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receiverID, err := uuid.Parse(input.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid receiver ID"})
		return
	}

	message, err := h.messages.Send(c.Request.Context(), senderID, receiverID, input.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := newDirectMessageResponse(*message)
	h.hub.Notify(receiverID, hub.MessageCreated, response)

	c.JSON(http.StatusOK, response)
}

// GetConversation godoc
// @Summary      Get a conversation
// @Description  Returns the latest messages exchanged with a connected user, newest first, and marks the ones they sent the caller as read.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true   "Other user's ID"
// @Param        limit   query     int     false  "Maximum number of messages (default 50)"
// @Success      200     {array}   DirectMessageResponse
// @Failure      400     {object}  ErrorResponse "Not connected or invalid id"
// @Failure      401     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse "User not found"
// @Failure      500     {object}  ErrorResponse
// @Router       /message/conversation/{userId} [get]
func (h *Handler) GetConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	peerID, ok := uuidParam(c, "userId", "user")
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	messages, err := h.messages.Conversation(c.Request.Context(), userID, peerID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDirectMessageResponses(messages))
}

// GetUnreadCount godoc
// @Summary      Count unread messages
// @Description  Returns the number of unread messages addressed to the caller.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {integer}  int
// @Failure      401  {object}   ErrorResponse
// @Failure      500  {object}   ErrorResponse
// @Router       /message/unread-count [get]
func (h *Handler) GetUnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.messages.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

// GetUnreadCountFrom godoc
// @Summary      Count unread messages from a user
// @Description  Returns the number of unread messages a specific user sent the caller.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path       string  true  "Sender's ID"
// @Success      200     {integer}  int
// @Failure      400     {object}   ErrorResponse
// @Failure      401     {object}   ErrorResponse
// @Failure      404     {object}   ErrorResponse "User not found"
// @Failure      500     {object}   ErrorResponse
// @Router       /message/unread-count/{userId} [get]
func (h *Handler) GetUnreadCountFrom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	peerID, ok := uuidParam(c, "userId", "user")
	if !ok {
		return
	}

	count, err := h.messages.UnreadCountFrom(c.Request.Context(), userID, peerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

// GetRecentConversations godoc
// @Summary      List recent conversations
// @Description  Returns the latest message with each user the caller has talked to, newest first.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum number of conversations (default 20)"
// @Success      200    {array}   DirectMessageResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      500    {object}  ErrorResponse
// @Router       /message/recent-conversations [get]
func (h *Handler) GetRecentConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	messages, err := h.messages.RecentConversations(c.Request.Context(), userID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDirectMessageResponses(messages))
}
