package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/models"
	"github.com/vuthy55/studio-sub006/internal/repository"
)

const (
	systemSpeakerName = "System"
	systemSpeakerUID  = "system"
)

func (s *DefaultService) CreateRoom(ctx context.Context, userID string, req models.CreateRoomRequest) (*models.SyncRoom, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, apperrors.NewValidationError("topic", "is required")
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	creator := userID
	room := &models.SyncRoom{
		Topic:            topic,
		CreatorUID:       userID,
		Status:           models.RoomActive,
		LastActivityAt:   now,
		InvitedEmails:    pq.StringArray(uniqueStrings(req.InvitedEmails, strings.ToLower)),
		ActiveSpeakerUID: &creator,
		EmceeUIDs:        pq.StringArray(uniqueStrings(append([]string{userID}, req.EmceeUIDs...), nil)),
		CreatedAt:        now,
	}

	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, s.internalError("create room", err)
	}

	s.logger.WithFields(map[string]interface{}{"roomId": room.ID, "creatorUid": userID}).Info("Room created")
	return room, nil
}

// uniqueStrings trims, optionally normalizes and de-duplicates values, keeping order
func uniqueStrings(values []string, normalize func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if normalize != nil {
			v = normalize(v)
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func (s *DefaultService) GetRoom(ctx context.Context, roomID string) (*models.SyncRoom, error) {
	if roomID == "" {
		return nil, apperrors.NewValidationError("roomId", "is required")
	}
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, s.internalError("get room", err)
	}
	if room == nil {
		return nil, apperrors.NewNotFoundError("room", roomID)
	}
	return room, nil
}

// SetFirstMessageTimestamp starts the room's session. A session that is
// already running is left untouched, so at most one start message is posted.
// Only room participants and admins may start it.
func (s *DefaultService) SetFirstMessageTimestamp(ctx context.Context, userID, roomID string) error {
	if roomID == "" {
		return apperrors.NewValidationError("roomId", "is required")
	}
	if err := s.authorizeRoom(ctx, userID, roomID, true); err != nil {
		return err
	}

	announcement := &models.RoomMessage{
		Text:        "Session started",
		SpeakerName: systemSpeakerName,
		SpeakerUID:  systemSpeakerUID,
		IsSystem:    true,
		CreatedAt:   s.now(),
	}

	started, err := s.repo.StartRoomSession(ctx, roomID, announcement)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return apperrors.NewNotFoundError("room", roomID)
		}
		return s.internalError("start room session", err)
	}

	if started {
		s.logger.WithField("roomId", roomID).Info("Room session started")
	}
	return nil
}

// SoftDeleteRoom closes the room, resets its session timer and notifies every
// admin. Only the creator, an emcee or an admin may close a room.
func (s *DefaultService) SoftDeleteRoom(ctx context.Context, userID, roomID string) error {
	if roomID == "" {
		return apperrors.NewValidationError("roomId", "is required")
	}
	if err := s.authorizeRoom(ctx, userID, roomID, false); err != nil {
		return err
	}

	closedAt := s.now()
	notice := func(room *models.SyncRoom, adminID string) *models.Notification {
		id := room.ID
		return &models.Notification{
			UserID:    adminID,
			Type:      models.NotificationRoomClosed,
			Message:   fmt.Sprintf("Room %q was closed", room.Topic),
			CreatedAt: closedAt,
			RoomID:    &id,
		}
	}

	_, notified, err := s.repo.CloseRoom(ctx, roomID, closedAt, notice)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return apperrors.NewNotFoundError("room", roomID)
		}
		return s.internalError("close room", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"roomId":         roomID,
		"adminsNotified": notified,
	}).Info("Room closed")
	return nil
}

// authorizeRoom checks that userID may manage the room. Creators, emcees and
// admins always may; invited users only when allowInvited is set.
func (s *DefaultService) authorizeRoom(ctx context.Context, userID, roomID string, allowInvited bool) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if user.IsAdmin() || room.CreatorUID == user.ID || containsString(room.EmceeUIDs, user.ID) {
		return nil
	}
	if allowInvited && containsString(room.InvitedEmails, strings.ToLower(user.Email)) {
		return nil
	}
	return apperrors.NewForbiddenError("you don't have permission to manage this room")
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func (s *DefaultService) PostMessage(ctx context.Context, userID, roomID string, req models.PostMessageRequest) (*models.RoomMessage, error) {
	if roomID == "" {
		return nil, apperrors.NewValidationError("roomId", "is required")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("text", "is required")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg := &models.RoomMessage{
		RoomID:          roomID,
		Text:            text,
		SpeakerName:     user.Name,
		SpeakerUID:      user.ID,
		SpeakerLanguage: req.SpeakerLanguage,
		CreatedAt:       s.now(),
	}

	if err := s.repo.AddRoomMessage(ctx, msg); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomNotFound):
			return nil, apperrors.NewNotFoundError("room", roomID)
		case errors.Is(err, repository.ErrRoomClosed):
			return nil, apperrors.NewConflictError("room is closed")
		default:
			return nil, s.internalError("post message", err)
		}
	}
	return msg, nil
}

func (s *DefaultService) ListMessages(ctx context.Context, roomID string) ([]models.RoomMessage, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListRoomMessages(ctx, roomID)
	if err != nil {
		return nil, s.internalError("list messages", err)
	}
	return messages, nil
}

func (s *DefaultService) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications, err := s.repo.ListNotifications(ctx, userID)
	if err != nil {
		return nil, s.internalError("list notifications", err)
	}
	return notifications, nil
}

func (s *DefaultService) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	if notificationID == "" {
		return apperrors.NewValidationError("notificationId", "is required")
	}

	if err := s.repo.MarkNotificationRead(ctx, userID, notificationID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return apperrors.NewNotFoundError("notification", notificationID)
		}
		return s.internalError("mark notification read", err)
	}
	return nil
}
