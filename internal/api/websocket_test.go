package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newQuietWebSocketManager() *WebSocketManager {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewWebSocketManager(logger)
}

func dialTestSubscriber(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return client
}

func TestSubscriberReceivesBroadcast(t *testing.T) {
	wsm := newQuietWebSocketManager()
	wsm.Start(context.Background())
	defer wsm.Stop()

	srv := httptest.NewServer(http.HandlerFunc(wsm.HandleConnection))
	defer srv.Close()

	client := dialTestSubscriber(t, srv)
	defer client.Close()

	require.Eventually(t, func() bool {
		wsm.mu.RLock()
		defer wsm.mu.RUnlock()
		return len(wsm.connections) == 1
	}, time.Second, 10*time.Millisecond)

	wsm.broadcast <- WebSocketMessage{Type: "alert", Timestamp: time.Now().UTC()}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WebSocketMessage
	require.NoError(t, client.ReadJSON(&msg))
	require.Equal(t, "alert", msg.Type)
}

// Stopping the manager with subscribers still connected winds down both pumps
// for every connection; nothing stays parked on the unregister channel.
func TestStopReleasesSubscribers(t *testing.T) {
	wsm := newQuietWebSocketManager()
	wsm.Start(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(wsm.HandleConnection))
	defer srv.Close()

	baseline := runtime.NumGoroutine()

	client := dialTestSubscriber(t, srv)
	defer client.Close()

	require.Eventually(t, func() bool {
		wsm.mu.RLock()
		defer wsm.mu.RUnlock()
		return len(wsm.connections) == 1
	}, time.Second, 10*time.Millisecond)

	wsm.Stop()
	client.Close()

	// The broadcast loop counted toward the baseline, so a full wind-down
	// drops strictly below it.
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() < baseline
	}, 2*time.Second, 20*time.Millisecond)
}
