package handler

import (
	"context"
	"net/http"
	"time"

	"socialnet/backend/internal/connection"
	"socialnet/backend/internal/hub"
	"socialnet/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// region --- DTOs ---

// ConnectionRequestInput names the user to connect to.
type ConnectionRequestInput struct {
	ReceiverID string `json:"receiverId" binding:"required" example:"0190a5d2-7c4e-7b8a-9a4e-2f1d3c4b5a69"`
}

// ConnectionResponse is an accepted connection seen from the caller's side.
type ConnectionResponse struct {
	UserResponse
	ConnectionID     string `json:"connectionId"`
	IsConnected      bool   `json:"isConnected" example:"true"`
	ConnectionStatus string `json:"connectionStatus" example:"accepted"`
}

// PendingConnectionResponse is a request waiting for the caller's answer.
type PendingConnectionResponse struct {
	ID        string       `json:"id"`
	Requester UserResponse `json:"requester"`
	Status    string       `json:"status" example:"pending"`
	CreatedAt time.Time    `json:"createdAt"`
}

// ConnectionEvent is pushed to the requester when the receiver answers.
type ConnectionEvent struct {
	ConnectionID string       `json:"connectionId"`
	Status       string       `json:"status"`
	User         UserResponse `json:"user"`
}

// endregion

func (h *Handler) pendingConnectionResponse(ctx context.Context, c models.Connection) PendingConnectionResponse {
	return PendingConnectionResponse{
		ID:        c.ID.String(),
		Requester: h.userResponse(ctx, c.Requester),
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
	}
}

// SendConnectionRequest godoc
// @Summary      Send connection request
// @Description  Sends a connection request to another user. Fails if any connection already exists between the two, in either direction.
// @Tags         connections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ConnectionRequestInput true "Receiver"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse "Invalid id, self request, or connection already exists"
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /user/connect [post]
func (h *Handler) SendConnectionRequest(c *gin.Context) {
	requesterID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input ConnectionRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receiverID, err := uuid.Parse(input.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid receiver ID"})
		return
	}

	ctx := c.Request.Context()
	created, err := h.connections.Request(ctx, requesterID, receiverID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if requester, err := h.users.ResolveUser(ctx, requesterID); err == nil {
		created.Requester = *requester
		h.hub.Notify(receiverID, hub.ConnectionRequested, h.pendingConnectionResponse(ctx, *created))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Connection request sent", "connectionId": created.ID.String()})
}

// AcceptConnection godoc
// @Summary      Accept connection request
// @Description  Accepts a pending request addressed to the caller.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Connection ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse "Connection is not pending"
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Connection request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /user/connect/{id}/accept [put]
func (h *Handler) AcceptConnection(c *gin.Context) {
	h.respond(c, connection.Accept, hub.ConnectionAccepted, "Connection accepted")
}

// RejectConnection godoc
// @Summary      Reject connection request
// @Description  Rejects a pending request addressed to the caller. The pair cannot connect afterwards.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Connection ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse "Connection is not pending"
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Connection request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /user/connect/{id}/reject [put]
func (h *Handler) RejectConnection(c *gin.Context) {
	h.respond(c, connection.Reject, hub.ConnectionRejected, "Connection rejected")
}

func (h *Handler) respond(c *gin.Context, decision connection.Decision, eventType, message string) {
	responderID, ok := currentUserID(c)
	if !ok {
		return
	}
	connectionID, ok := uuidParam(c, "id", "connection")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	updated, err := h.connections.Respond(ctx, connectionID, responderID, decision)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if responder, err := h.users.ResolveUser(ctx, responderID); err == nil {
		h.hub.Notify(updated.RequesterID, eventType, ConnectionEvent{
			ConnectionID: updated.ID.String(),
			Status:       string(updated.Status),
			User:         h.userResponse(ctx, *responder),
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// GetConnections godoc
// @Summary      List connections
// @Description  Lists the users the caller is connected to, whichever side sent the request.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   ConnectionResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /user/connections [get]
func (h *Handler) GetConnections(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	peers, err := h.connections.ListAccepted(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	connections := make([]ConnectionResponse, 0, len(peers))
	for _, p := range peers {
		connections = append(connections, ConnectionResponse{
			UserResponse:     h.userResponse(ctx, p.User),
			ConnectionID:     p.ConnectionID.String(),
			IsConnected:      true,
			ConnectionStatus: string(models.ConnectionAccepted),
		})
	}

	c.JSON(http.StatusOK, connections)
}

// GetPendingConnections godoc
// @Summary      List pending requests
// @Description  Lists connection requests waiting for the caller's answer, newest first.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   PendingConnectionResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /user/connections/pending [get]
func (h *Handler) GetPendingConnections(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	pending, err := h.connections.ListPending(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	responses := make([]PendingConnectionResponse, 0, len(pending))
	for _, p := range pending {
		responses = append(responses, h.pendingConnectionResponse(ctx, p))
	}

	c.JSON(http.StatusOK, responses)
}
