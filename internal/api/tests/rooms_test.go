package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vuthy55/studio-sub006/internal/api/testutils"
	"github.com/vuthy55/studio-sub006/internal/models"
)

func createRoom(t *testing.T, testCtx *testutils.TestContext, topic string) models.SyncRoom {
	t.Helper()
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/rooms",
		models.CreateRoomRequest{Topic: topic, InvitedEmails: []string{"Friend@Example.com"}},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Room
}

func TestRoomLifecycle(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)
	headers := testutils.AuthHeaders(testCtx.TestUserJWT)

	room := createRoom(t, testCtx, "Night market")
	assert.Equal(t, models.RoomActive, room.Status)
	assert.Equal(t, []string{"friend@example.com"}, []string(room.InvitedEmails))
	assert.Nil(t, room.FirstMessageAt)

	t.Run("SessionStartIsIdempotent", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			w := testutils.PerformRequest(testCtx.Router, http.MethodPost,
				fmt.Sprintf("/api/rooms/%s/session", room.ID), nil, headers)
			require.Equal(t, http.StatusOK, w.Code)
		}

		w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
			fmt.Sprintf("/api/rooms/%s/messages", room.ID), nil, headers)
		require.Equal(t, http.StatusOK, w.Code)
		var msgs models.MessagesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
		require.Len(t, msgs.Messages, 1)
		assert.True(t, msgs.Messages[0].IsSystem)
	})

	t.Run("PostMessage", func(t *testing.T) {
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost,
			fmt.Sprintf("/api/rooms/%s/messages", room.ID),
			models.PostMessageRequest{Text: "Sawasdee", SpeakerLanguage: "th-TH"}, headers)
		require.Equal(t, http.StatusCreated, w.Code)

		var resp models.MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, testCtx.TestUserID, resp.Message.SpeakerUID)
		assert.False(t, resp.Message.IsSystem)
	})

	t.Run("CloseNotifiesAdmins", func(t *testing.T) {
		w := testutils.PerformRequest(testCtx.Router, http.MethodDelete,
			fmt.Sprintf("/api/rooms/%s", room.ID), nil, headers)
		require.Equal(t, http.StatusOK, w.Code)

		w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
			fmt.Sprintf("/api/rooms/%s", room.ID), nil, headers)
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.RoomResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.RoomClosed, resp.Room.Status)
		assert.Nil(t, resp.Room.FirstMessageAt)
		assert.NotNil(t, resp.Room.LastSessionEndedAt)

		w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/notifications", nil,
			testutils.AuthHeaders(testCtx.TestAdminJWT))
		require.Equal(t, http.StatusOK, w.Code)
		var notes models.NotificationsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
		require.Len(t, notes.Notifications, 1)
		assert.Equal(t, models.NotificationRoomClosed, notes.Notifications[0].Type)
		assert.False(t, notes.Notifications[0].Read)

		// only the addressee can mark it read
		noteID := notes.Notifications[0].ID
		w = testutils.PerformRequest(testCtx.Router, http.MethodPost,
			fmt.Sprintf("/api/notifications/%s/read", noteID), nil, headers)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = testutils.PerformRequest(testCtx.Router, http.MethodPost,
			fmt.Sprintf("/api/notifications/%s/read", noteID), nil,
			testutils.AuthHeaders(testCtx.TestAdminJWT))
		assert.Equal(t, http.StatusOK, w.Code)

		w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/notifications", nil, headers)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
		assert.Empty(t, notes.Notifications)
	})

	t.Run("ClosedRoomRejectsMessages", func(t *testing.T) {
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost,
			fmt.Sprintf("/api/rooms/%s/messages", room.ID),
			models.PostMessageRequest{Text: "Anyone?"}, headers)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestRoomAccess(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	room := createRoom(t, testCtx, "Temple tour")
	_, strangerJWT := testCtx.CreateUser(t, "stranger@example.com")
	_, friendJWT := testCtx.CreateUser(t, "friend@example.com")
	stranger := testutils.AuthHeaders(strangerJWT)
	friend := testutils.AuthHeaders(friendJWT)
	roomPath := fmt.Sprintf("/api/rooms/%s", room.ID)

	t.Run("StrangerCannotClose", func(t *testing.T) {
		w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, roomPath, nil, stranger)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", testutils.DecodeAction(t, w).Code)

		w = testutils.PerformRequest(testCtx.Router, http.MethodPost, roomPath+"/session", nil, stranger)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = testutils.PerformRequest(testCtx.Router, http.MethodGet, roomPath, nil, stranger)
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.RoomResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.RoomActive, resp.Room.Status)
		assert.Nil(t, resp.Room.FirstMessageAt)

		w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/notifications", nil,
			testutils.AuthHeaders(testCtx.TestAdminJWT))
		var notes models.NotificationsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
		assert.Empty(t, notes.Notifications)
	})

	t.Run("InvitedUserStartsButCannotClose", func(t *testing.T) {
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost, roomPath+"/session", nil, friend)
		assert.Equal(t, http.StatusOK, w.Code)

		w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, roomPath, nil, friend)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("AdminCanClose", func(t *testing.T) {
		w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, roomPath, nil,
			testutils.AuthHeaders(testCtx.TestAdminJWT))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRoomNotFound(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)
	headers := testutils.AuthHeaders(testCtx.TestUserJWT)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/rooms/missing"},
		{http.MethodDelete, "/api/rooms/missing"},
		{http.MethodPost, "/api/rooms/missing/session"},
		{http.MethodGet, "/api/rooms/missing/messages"},
	} {
		w := testutils.PerformRequest(testCtx.Router, tc.method, tc.path, nil, headers)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/rooms",
		models.CreateRoomRequest{}, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
