package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vuthy55/studio-sub006/internal/models"
)

// handleCreateRoom handles POST /api/rooms
func (h *Handler) handleCreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if !bindJSON(c, &req) {
		return
	}

	room, err := h.svc.CreateRoom(c.Request.Context(), c.GetString(contextUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.RoomResponse{Success: true, Room: *room})
}

func (h *Handler) handleGetRoom(c *gin.Context) {
	room, err := h.svc.GetRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RoomResponse{Success: true, Room: *room})
}

// handleStartSession handles POST /api/rooms/:roomId/session
func (h *Handler) handleStartSession(c *gin.Context) {
	if err := h.svc.SetFirstMessageTimestamp(c.Request.Context(), c.GetString(contextUserID), c.Param("roomId")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Session started")
}

// handleSoftDeleteRoom handles DELETE /api/rooms/:roomId
func (h *Handler) handleSoftDeleteRoom(c *gin.Context) {
	if err := h.svc.SoftDeleteRoom(c.Request.Context(), c.GetString(contextUserID), c.Param("roomId")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Room closed")
}

func (h *Handler) handlePostMessage(c *gin.Context) {
	var req models.PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.svc.PostMessage(c.Request.Context(), c.GetString(contextUserID), c.Param("roomId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.MessageResponse{Success: true, Message: *msg})
}

func (h *Handler) handleListMessages(c *gin.Context) {
	roomID := c.Param("roomId")
	messages, err := h.svc.ListMessages(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessagesResponse{Success: true, RoomID: roomID, Messages: messages})
}

func (h *Handler) handleListNotifications(c *gin.Context) {
	notifications, err := h.svc.ListNotifications(c.Request.Context(), c.GetString(contextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NotificationsResponse{Success: true, Notifications: notifications})
}

func (h *Handler) handleMarkNotificationRead(c *gin.Context) {
	if err := h.svc.MarkNotificationRead(c.Request.Context(), c.GetString(contextUserID), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Notification marked as read")
}
