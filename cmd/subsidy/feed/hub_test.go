package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/common/logger"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(logger.NewNop())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, r.URL.Query().Get("efn"))
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, efn string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?efn=" + efn
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) (string, error) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, data, err := conn.ReadMessage()
	return string(data), err
}

func TestHub_RoutesByFarmer(t *testing.T) {
	hub, srv := startHub(t)

	all := dial(t, srv, AllFarmers)
	one := dial(t, srv, "EFN-PUN-00000001")
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("EFN-PUN-00000001", []byte(`{"n":1}`))
	hub.Broadcast("EFN-PUN-00000002", []byte(`{"n":2}`))

	msg, err := read(t, all)
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, msg)
	msg, err = read(t, all)
	require.NoError(t, err)
	assert.Equal(t, `{"n":2}`, msg)

	msg, err = read(t, one)
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, msg)
	_, err = read(t, one)
	assert.Error(t, err)
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, AllFarmers)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
