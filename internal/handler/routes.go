package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API on api. requireAuth guards every route except
// registration and login.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/logout", requireAuth, h.Logout)
	}

	userRoutes := api.Group("/user")
	userRoutes.Use(requireAuth)
	{
		userRoutes.GET("/profile", h.GetProfile)
		userRoutes.POST("/profile/picture", h.CreateProfilePictureUpload)
		userRoutes.PUT("/profile/picture", h.ConfirmProfilePicture)
		userRoutes.GET("/search", h.SearchUsers)

		// Connection routes
		userRoutes.POST("/connect", h.SendConnectionRequest)
		userRoutes.PUT("/connect/:id/accept", h.AcceptConnection)
		userRoutes.PUT("/connect/:id/reject", h.RejectConnection)
		userRoutes.GET("/connections", h.GetConnections)
		userRoutes.GET("/connections/pending", h.GetPendingConnections)
	}

	messageRoutes := api.Group("/message")
	messageRoutes.Use(requireAuth)
	{
		messageRoutes.POST("", h.SendMessage)
		messageRoutes.GET("/conversation/:userId", h.GetConversation)
		messageRoutes.GET("/unread-count", h.GetUnreadCount)
		messageRoutes.GET("/unread-count/:userId", h.GetUnreadCountFrom)
		messageRoutes.GET("/recent-conversations", h.GetRecentConversations)
	}

	api.GET("/stream", requireAuth, h.Stream)
}
