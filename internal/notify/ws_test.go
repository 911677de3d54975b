package notify

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Router, func() *ws.Conn) {
	t.Helper()
	router, url := startServer(t, nil)

	dial := func() *ws.Conn {
		t.Helper()
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	return router, dial
}

func startServer(t *testing.T, verify TokenVerifier) (*Router, string) {
	t.Helper()
	router := NewRouter(nil)
	handler := NewHandler(router, func(*http.Request) bool { return true }, verify, nil)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return router, "ws" + strings.TrimPrefix(server.URL, "http")
}

// tokenVerifier accepts "token-<id>" as the token of user <id>.
func tokenVerifier(token string) (string, error) {
	userID, ok := strings.CutPrefix(token, "token-")
	if !ok || userID == "" {
		return "", errors.New("bad token")
	}
	return userID, nil
}

func register(t *testing.T, conn *ws.Conn, userID string) {
	t.Helper()
	msg := `{"event":"register","data":{"userId":"` + userID + `"}}`
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(msg)))
}

// waitFor polls until cond holds or a second passes.
func waitFor(cond func() bool) bool {
	for i := 0; i < 200; i++ {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func readNotification(t *testing.T, conn *ws.Conn) map[string]string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var f struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &f))
	assert.Equal(t, "notification", f.Event)
	return f.Data
}

func TestWebsocket_RegisterAndDeliver(t *testing.T) {
	router, dial := testServer(t)
	conn := dial()

	register(t, conn, "u2")
	require.True(t, waitFor(func() bool { return router.Connected("u2") }))

	assert.True(t, router.Deliver("u2", PostUpvoted("u2", "alice", "p1")))

	data := readNotification(t, conn)
	assert.Equal(t, "Alice upvoted your post", data["message"])
	assert.Equal(t, "p1", data["postId"])
}

func TestWebsocket_UnregisteredConnectionReceivesNothing(t *testing.T) {
	router, dial := testServer(t)
	conn := dial()

	assert.False(t, router.Deliver("u2", PostUpvoted("u2", "alice", "p1")))

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebsocket_ReconnectSupersedesOldConnection(t *testing.T) {
	router, dial := testServer(t)
	first := dial()
	register(t, first, "u1")
	require.True(t, waitFor(func() bool { return router.Connected("u1") }))

	second := dial()
	register(t, second, "u1")
	// The first connection stays open but no longer receives events.
	time.Sleep(50 * time.Millisecond)

	require.True(t, router.Deliver("u1", NewSubscriber("u1", "bob", "go", "f1")))
	data := readNotification(t, second)
	assert.Equal(t, "f1", data["forumId"])

	first.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
}

func TestWebsocket_DisconnectPurgesRegistration(t *testing.T) {
	router, dial := testServer(t)
	conn := dial()
	register(t, conn, "u1")
	require.True(t, waitFor(func() bool { return router.Connected("u1") }))

	require.NoError(t, conn.Close())

	assert.True(t, waitFor(func() bool { return !router.Connected("u1") }))
	assert.False(t, router.Deliver("u1", PostUpvoted("u1", "alice", "p1")))
}

func TestWebsocket_IgnoresMalformedFrames(t *testing.T) {
	router, dial := testServer(t)
	conn := dial()

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"event":"register","data":{}}`)))
	register(t, conn, "u3")

	assert.True(t, waitFor(func() bool { return router.Connected("u3") }))
	assert.Equal(t, 1, router.Len())
}

func TestClient_SendAfterCloseFails(t *testing.T) {
	router, dial := testServer(t)
	conn := dial()
	register(t, conn, "u1")
	require.True(t, waitFor(func() bool { return router.Connected("u1") }))

	router.mu.RLock()
	client := router.conns["u1"].(*Client)
	router.mu.RUnlock()

	client.close()
	assert.ErrorIs(t, client.Send(map[string]string{"message": "x"}), ErrConnectionClosed)
}

func TestWebsocket_TokenRequiredWhenVerifying(t *testing.T) {
	_, url := startServer(t, tokenVerifier)

	_, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = ws.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocket_CannotRegisterAsAnotherUser(t *testing.T) {
	router, url := startServer(t, tokenVerifier)

	conn, _, err := ws.DefaultDialer.Dial(url+"?token=token-mallory", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	register(t, conn, "victim")
	register(t, conn, "mallory")
	require.True(t, waitFor(func() bool { return router.Connected("mallory") }))

	assert.False(t, router.Connected("victim"))
	assert.False(t, router.Deliver("victim", PostUpvoted("victim", "alice", "p1")))
}

func TestWebsocket_BearerHeaderAccepted(t *testing.T) {
	router, url := startServer(t, tokenVerifier)

	header := http.Header{"Authorization": []string{"Bearer token-u7"}}
	conn, _, err := ws.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	register(t, conn, "u7")
	assert.True(t, waitFor(func() bool { return router.Connected("u7") }))
}
