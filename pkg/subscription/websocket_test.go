package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestReadErrorDropsConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Hang up right away to force a read error on the client.
		conn.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := NewWebSocketClient(ctx, wsURL)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool {
		return !client.IsConnected()
	}, 2*time.Second, 10*time.Millisecond)

	// The dead conn is gone, so sends fail fast instead of writing into it.
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()
	require.Nil(t, conn)

	_, err = client.SubscribeAccount("acct", func(string, []byte, uint64) {})
	require.Error(t, err)
}
