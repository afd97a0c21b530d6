package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"minisocial/internal/config"
	"minisocial/internal/database"
	"minisocial/internal/middleware"
	"minisocial/internal/models"
	"minisocial/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	srv   *Server
	app   *fiber.App
	users repository.UserRepository
	auth  *middleware.Authenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:          testSecret,
		JWTIssuer:          "minisocial-api",
		JWTAudience:        "minisocial-client",
		AllowedOrigins:     "*",
		FeatureFlags:       "live_feed=on,profile_cache=on",
		MediaBackend:       "local",
		MediaUploadDir:     t.TempDir(),
		MediaPublicBaseURL: "/uploads",
		MediaMaxUploadMB:   2,
		EventsTopic:        "minisocial.events",
		StoreTimeoutMS:     5000,
	}
	srv, err := NewServerWithDeps(cfg, Deps{DB: db})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	return &testEnv{
		srv:   srv,
		app:   srv.App(),
		users: repository.NewUserRepository(db),
		auth:  middleware.NewAuthenticator(cfg),
	}
}

func (e *testEnv) user(t *testing.T, name string) (uint, string) {
	t.Helper()
	u := &models.User{Username: name, Password: "hash"}
	require.NoError(t, e.users.Create(t.Context(), u))
	token, err := e.auth.Issue(u.ID, time.Hour)
	require.NoError(t, err)
	return u.ID, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/posts/feed"},
		{http.MethodPost, "/api/posts"},
		{http.MethodPost, "/api/posts/1/like"},
		{http.MethodGet, "/api/users/search?q=a"},
		{http.MethodPost, "/api/users/follow/1"},
	} {
		status, body := env.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, tc.path)
		assert.Equal(t, models.CodeUnauthorized, decode[models.ErrorResponse](t, body).Code)
	}

	status, _ := env.do(t, http.MethodGet, "/api/posts/feed", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	u1, tok1 := env.user(t, "u1")
	u2, tok2 := env.user(t, "u2")

	status, body := env.do(t, http.MethodPost, fmt.Sprintf("/api/users/follow/%d", u2), tok1, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	follow := decode[models.FollowResult](t, body)
	assert.True(t, follow.Followed)
	assert.Equal(t, []uint{u2}, follow.Following)
	assert.Equal(t, []uint{u1}, follow.Followers)

	status, body = env.do(t, http.MethodPost, "/api/posts", tok2, map[string]string{"content_text": "hello"})
	require.Equal(t, http.StatusCreated, status, string(body))
	post := decode[models.Post](t, body)
	assert.Equal(t, u2, post.UserID)

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", post.ID), tok1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"liked":true,"likes_count":1}`, string(body))

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comment", post.ID), tok1, map[string]string{"comment_text": "nice"})
	require.Equal(t, http.StatusCreated, status, string(body))
	comments := decode[[]models.Comment](t, body)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].CommentText)

	status, body = env.do(t, http.MethodGet, "/api/posts/feed", tok1, nil)
	require.Equal(t, http.StatusOK, status)
	feed := decode[[]models.FeedPost](t, body)
	require.Len(t, feed, 1)
	assert.Equal(t, "u2", feed[0].Author.Username)
	assert.Equal(t, []uint{u1}, feed[0].Likes)
	assert.True(t, feed[0].LikedByViewer)
	require.Len(t, feed[0].Comments, 1)
	assert.Equal(t, "u1", feed[0].Comments[0].Author.Username)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", u2), tok1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(body), "password")
	profile := decode[models.UserProfile](t, body)
	assert.Equal(t, []models.PublicUser{{ID: u1, Username: "u1"}}, profile.Followers)

	status, body = env.do(t, http.MethodGet, "/api/users/search?q=U", tok1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.PublicUser](t, body), 2)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	u1, tok1 := env.user(t, "u1")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"self follow", http.MethodPost, fmt.Sprintf("/api/users/follow/%d", u1), nil, http.StatusBadRequest, models.CodeInvalidOperation},
		{"follow unknown", http.MethodPost, "/api/users/follow/999", nil, http.StatusNotFound, models.CodeNotFound},
		{"like unknown", http.MethodPost, "/api/posts/999/like", nil, http.StatusNotFound, models.CodeNotFound},
		{"comment unknown", http.MethodPost, "/api/posts/999/comment", map[string]string{"comment_text": "x"}, http.StatusNotFound, models.CodeNotFound},
		{"blank comment", http.MethodPost, "/api/posts/1/comment", map[string]string{"comment_text": "   "}, http.StatusBadRequest, models.CodeValidation},
		{"bad id", http.MethodPost, "/api/posts/abc/like", nil, http.StatusBadRequest, models.CodeValidation},
		{"profile unknown", http.MethodGet, "/api/users/999", nil, http.StatusNotFound, models.CodeNotFound},
		{"bad limit", http.MethodGet, "/api/posts/feed?limit=-3", nil, http.StatusBadRequest, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, tt.method, tt.path, tok1, tt.body)
			assert.Equal(t, tt.status, status, string(body))
			assert.Equal(t, tt.code, decode[models.ErrorResponse](t, body).Code)
		})
	}

	_, body := env.do(t, http.MethodPost, "/api/posts/abc/like", tok1, nil)
	assert.Equal(t, "Invalid post ID", decode[models.ErrorResponse](t, body).Error)
}

func TestSearchUsers_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.user(t, "someone")

	status, body := env.do(t, http.MethodGet, "/api/users/search?q=", tok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestCreatePost_MultipartWithMedia(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.user(t, "artist")

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content_text", "look"))
	part, err := w.CreateFormFile("media", "pic.png")
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	status, body := env.send(t, req)
	require.Equal(t, http.StatusCreated, status, string(body))

	post := decode[models.Post](t, body)
	assert.Equal(t, "look", post.ContentText)
	assert.True(t, strings.HasPrefix(post.MediaURL, "/uploads/media/"), post.MediaURL)

	// Local uploads are served back as static files.
	status, _ = env.do(t, http.MethodGet, post.MediaURL, "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCreatePost_FailedCreateDiscardsUpload(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.user(t, "artist")

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 16, 16))))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content_text", strings.Repeat("x", 5001)))
	part, err := w.CreateFormFile("media", "pic.png")
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	status, body := env.send(t, req)
	require.Equal(t, http.StatusBadRequest, status, string(body))
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, body).Code)

	entries, err := os.ReadDir(filepath.Join(env.srv.config.MediaUploadDir, "media"))
	if !os.IsNotExist(err) {
		require.NoError(t, err)
	}
	assert.Empty(t, entries, "upload left behind after the post was rejected")
}

func TestUploadMedia_RejectsText(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.user(t, "artist")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("media", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	status, body := env.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, body).Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &ready))
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"])
	assert.Equal(t, "unavailable", ready.Checks["redis"])
}

func TestLiveFeed_FollowerReceivesPost(t *testing.T) {
	env := newTestEnv(t)
	follower, tokF := env.user(t, "follower")
	author, tokA := env.user(t, "author")

	status, _ := env.do(t, http.MethodPost, fmt.Sprintf("/api/users/follow/%d", author), tokF, nil)
	require.Equal(t, http.StatusOK, status)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.Shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws?token="+tokF, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return env.srv.hub.Connections(follower) == 1 }, 2*time.Second, 10*time.Millisecond)

	status, _ = env.do(t, http.MethodPost, "/api/posts", tokA, map[string]string{"content_text": "fresh"})
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "post_created", got.Type)
	assert.EqualValues(t, author, got.Payload["user_id"])
}
