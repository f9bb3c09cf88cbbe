package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialnet/backend/internal/auth"
	"socialnet/backend/internal/connection"
	"socialnet/backend/internal/handler"
	"socialnet/backend/internal/hub"
	"socialnet/backend/internal/identity"
	"socialnet/backend/internal/messaging"
	"socialnet/backend/internal/models"
	"socialnet/backend/internal/storage"
	"socialnet/backend/internal/testutil"
	"socialnet/backend/pkg/jwt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router *gin.Engine
	hub    *hub.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithPictures(t, nil)
}

func newTestServerWithPictures(t *testing.T, pictures *storage.ProfilePictures) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	clock := testutil.NewClock()
	users := identity.NewStore(db).WithHashCost(bcrypt.MinCost)
	connections := connection.NewManager(db, users).WithClock(clock.Now)
	tokens := jwt.NewAuthenticator("test-secret", "socialnet", time.Hour)
	sessions := auth.NewSessionStore(db)
	events := hub.NewHub(zerolog.Nop())

	h := handler.New(handler.Deps{
		Users:       users,
		Tokens:      tokens,
		Sessions:    sessions,
		Connections: connections,
		Messages:    messaging.NewService(db, users, connections).WithClock(clock.Now),
		Hub:         events,
		Pictures:    pictures,
		Origins:     []string{"*"},
		Log:         zerolog.Nop(),
	})

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"), auth.AuthMiddleware(tokens, sessions, zerolog.Nop()))
	return &testServer{router: router, hub: events}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// register creates a user through the API and returns its auth response.
func (s *testServer) register(t *testing.T, username string) handler.AuthResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", handler.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testutil.Password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[handler.AuthResponse](t, w)
}

// connect makes a and b connected and returns the connection id.
func (s *testServer) connect(t *testing.T, a, b handler.AuthResponse) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/user/connect", a.Token, handler.ConnectionRequestInput{ReceiverID: b.UserID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := decode[map[string]string](t, w)["connectionId"]

	w = s.do(t, http.MethodPut, "/api/user/connect/"+id+"/accept", b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	alice := s.register(t, "alice")
	assert.True(t, alice.Success)
	assert.NotEmpty(t, alice.Token)
	assert.Equal(t, "alice@example.com", alice.Email)

	t.Run("duplicate email", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/auth/register", "", handler.RegisterInput{
			Username: "alice2", Email: "alice@example.com", Password: testutil.Password,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/auth/register", "", handler.RegisterInput{
			Username: "bob", Email: "bob@example.com", Password: "password",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "uppercase")
	})

	t.Run("invalid login", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/auth/login", "", handler.LoginInput{Email: "alice@example.com", Password: "Wrong1!"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login, profile, logout", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/auth/login", "", handler.LoginInput{Email: "alice@example.com", Password: testutil.Password})
		require.Equal(t, http.StatusOK, w.Code)
		token := decode[handler.AuthResponse](t, w).Token

		w = s.do(t, http.MethodGet, "/api/user/profile", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", decode[handler.UserResponse](t, w).Username)

		w = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodGet, "/api/user/profile", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		// other sessions stay valid
		w = s.do(t, http.MethodGet, "/api/user/profile", alice.Token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/user/connections", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestConnectionEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice, bob, carol := s.register(t, "alice"), s.register(t, "bob"), s.register(t, "carol")

	w := s.do(t, http.MethodPost, "/api/user/connect", alice.Token, handler.ConnectionRequestInput{ReceiverID: bob.UserID})
	require.Equal(t, http.StatusOK, w.Code)
	connectionID := decode[map[string]string](t, w)["connectionId"]

	t.Run("duplicate in either direction", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/user/connect", bob.Token, handler.ConnectionRequestInput{ReceiverID: alice.UserID})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Connection already exists")
	})

	t.Run("self and unknown", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/user/connect", alice.Token, handler.ConnectionRequestInput{ReceiverID: alice.UserID})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = s.do(t, http.MethodPost, "/api/user/connect", alice.Token, handler.ConnectionRequestInput{ReceiverID: models.NewID().String()})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = s.do(t, http.MethodPost, "/api/user/connect", alice.Token, handler.ConnectionRequestInput{ReceiverID: "42"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("pending list", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/user/connections/pending", bob.Token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		pending := decode[[]handler.PendingConnectionResponse](t, w)
		require.Len(t, pending, 1)
		assert.Equal(t, connectionID, pending[0].ID)
		assert.Equal(t, "alice", pending[0].Requester.Username)
	})

	t.Run("only receiver may answer", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/api/user/connect/"+connectionID+"/accept", alice.Token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = s.do(t, http.MethodPut, "/api/user/connect/"+connectionID+"/accept", carol.Token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = s.do(t, http.MethodPut, "/api/user/connect/not-a-uuid/accept", bob.Token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("accept then answer again", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/api/user/connect/"+connectionID+"/accept", bob.Token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodPut, "/api/user/connect/"+connectionID+"/reject", bob.Token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("connections from both sides", func(t *testing.T) {
		for _, tc := range []struct {
			viewer handler.AuthResponse
			peer   string
		}{{alice, "bob"}, {bob, "alice"}} {
			w := s.do(t, http.MethodGet, "/api/user/connections", tc.viewer.Token, nil)
			require.Equal(t, http.StatusOK, w.Code)
			connections := decode[[]handler.ConnectionResponse](t, w)
			require.Len(t, connections, 1)
			assert.Equal(t, tc.peer, connections[0].Username)
			assert.Equal(t, connectionID, connections[0].ConnectionID)
			assert.True(t, connections[0].IsConnected)
		}
	})

	t.Run("search annotates status", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/user/search?searchTerm=o", alice.Token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		results := decode[[]handler.UserSearchResponse](t, w)
		require.Len(t, results, 2)

		byName := map[string]handler.UserSearchResponse{}
		for _, r := range results {
			byName[r.Username] = r
		}
		assert.True(t, byName["bob"].IsConnected)
		require.NotNil(t, byName["bob"].ConnectionStatus)
		assert.Equal(t, "accepted", *byName["bob"].ConnectionStatus)
		assert.False(t, byName["carol"].IsConnected)
		assert.Nil(t, byName["carol"].ConnectionStatus)
	})
}

func TestMessagingScenario(t *testing.T) {
	s := newTestServer(t)
	alice, bob, carol := s.register(t, "alice"), s.register(t, "bob"), s.register(t, "carol")
	s.connect(t, alice, bob)

	w := s.do(t, http.MethodPost, "/api/message", alice.Token, handler.SendMessageInput{ReceiverID: carol.UserID, Content: "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "not connected")

	w = s.do(t, http.MethodPost, "/api/message", alice.Token, handler.SendMessageInput{ReceiverID: models.NewID().String(), Content: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/message", alice.Token, handler.SendMessageInput{ReceiverID: bob.UserID, Content: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/message", alice.Token, handler.SendMessageInput{ReceiverID: bob.UserID, Content: "hello bob"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := decode[handler.DirectMessageResponse](t, w)
	assert.Equal(t, "alice", sent.SenderUsername)
	assert.Equal(t, "bob", sent.ReceiverUsername)
	assert.False(t, sent.IsRead)

	w = s.do(t, http.MethodGet, "/api/message/unread-count", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/message/unread-count/"+alice.UserID, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/message/recent-conversations", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	recent := decode[[]handler.DirectMessageResponse](t, w)
	require.Len(t, recent, 1)
	assert.Equal(t, sent.ID, recent[0].ID)

	w = s.do(t, http.MethodGet, "/api/message/conversation/"+alice.UserID, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	conversation := decode[[]handler.DirectMessageResponse](t, w)
	require.Len(t, conversation, 1)
	assert.True(t, conversation[0].IsRead)

	w = s.do(t, http.MethodGet, "/api/message/unread-count", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/message/conversation/"+carol.UserID, alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/message/conversation/"+models.NewID().String(), alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/message/conversation/"+alice.UserID+"?limit=zero", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectedConnectionBlocksMessaging(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	w := s.do(t, http.MethodPost, "/api/user/connect", alice.Token, handler.ConnectionRequestInput{ReceiverID: bob.UserID})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[map[string]string](t, w)["connectionId"]

	w = s.do(t, http.MethodPut, "/api/user/connect/"+id+"/reject", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/message", alice.Token, handler.SendMessageInput{ReceiverID: bob.UserID, Content: "please"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfilePictureDisabled(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/user/profile/picture", alice.Token, handler.ProfilePictureInput{FileName: "me.png", ContentType: "image/png"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(t, http.MethodPut, "/api/user/profile/picture", alice.Token, handler.ProfilePictureConfirmInput{Key: "profile-pics/" + alice.UserID + "/me.png"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProfilePictureUploadAndConfirm(t *testing.T) {
	pictures := storage.NewProfilePicturesFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	}, "avatars", 5*time.Minute)
	s := newTestServerWithPictures(t, pictures)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	w := s.do(t, http.MethodPost, "/api/user/profile/picture", alice.Token, handler.ProfilePictureInput{FileName: "me.png", ContentType: "image/png"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	upload := decode[handler.ProfilePictureUploadResponse](t, w)
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature=")
	assert.True(t, strings.HasPrefix(upload.Key, "profile-pics/"+alice.UserID+"/"))

	// issuing an upload URL does not change the profile
	w = s.do(t, http.MethodGet, "/api/user/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[handler.UserResponse](t, w).ProfilePicture)

	w = s.do(t, http.MethodPut, "/api/user/profile/picture", bob.Token, handler.ProfilePictureConfirmInput{Key: upload.Key})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/user/profile/picture", alice.Token, handler.ProfilePictureConfirmInput{Key: upload.Key})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	profile := decode[handler.UserResponse](t, w)
	require.NotNil(t, profile.ProfilePicture)
	assert.Contains(t, *profile.ProfilePicture, upload.Key)

	w = s.do(t, http.MethodPost, "/api/user/profile/picture", alice.Token, handler.ProfilePictureInput{FileName: "notes.txt", ContentType: "text/plain"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamReceivesMessageEvents(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")
	s.connect(t, alice, bob)

	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/stream?token=" + bob.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	bobID, err := uuid.Parse(bob.UserID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.hub.Online(bobID) == 1 }, time.Second, 10*time.Millisecond)

	w := s.do(t, http.MethodPost, "/api/message", alice.Token, handler.SendMessageInput{ReceiverID: bob.UserID, Content: "ping"})
	require.Equal(t, http.StatusOK, w.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Type    string                        `json:"type"`
		Payload handler.DirectMessageResponse `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, hub.MessageCreated, event.Type)
	assert.Equal(t, "ping", event.Payload.Content)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/stream", nil)
	assert.Error(t, err, "stream requires a token")
}
