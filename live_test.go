package colorpages

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHandler_LiveNavigation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	srv := httptest.NewServer(&Handler{Metrics: m, Logger: discardLogger()})
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/red"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	tests := []struct {
		path string
		want string
	}{
		{"/blue", `<div style="width: 500px; height: 500px; background-color: blue"></div>`},
		{"/notacolor", `<div style="width: 500px; height: 500px; background-color: notacolor"></div>`},
		{"/%23ff0000", `<div style="width: 500px; height: 500px; background-color: #ff0000"></div>`},
		{"/", ``},
		{"/blue/green", ``},
	}
	for _, tt := range tests {
		require.NoError(t, ws.WriteJSON(navigateMessage{Path: tt.path}))

		mt, data, err := ws.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.TextMessage, mt)
		require.Equal(t, tt.want, string(data), "path %s", tt.path)
	}

	require.Equal(t, 1.0, testutil.ToFloat64(m.LiveSessions))
	require.Equal(t, float64(len(tests)), testutil.ToFloat64(m.Navigations))
	require.Equal(t, 3.0, testutil.ToFloat64(m.Renders.WithLabelValues("/{color}", outcomeOK)))

	err = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	require.NoError(t, err)
}

func TestHandler_LiveDisabled(t *testing.T) {
	srv := httptest.NewServer(&Handler{DisableLive: true})
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/red", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, 200, resp.StatusCode)
}

func TestHandler_LiveErrorsStayInSession(t *testing.T) {
	var onError atomic.Int32
	m := NewMetrics(prometheus.NewRegistry())
	srv := httptest.NewServer(&Handler{
		Metrics: m,
		Logger:  discardLogger(),
		OnError: func(*http.Request, error) { onError.Add(1) },
	})
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/red", nil)
	require.NoError(t, err)
	defer ws.Close()

	// A malformed message is skipped, the session goes on.
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, ws.WriteJSON(navigateMessage{Path: "/blue"}))

	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, `<div style="width: 500px; height: 500px; background-color: blue"></div>`, string(data))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Navigations))

	// An oversized message ends the session without reaching OnError.
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", maxNavigateMessageSize+1))))
	_, _, err = ws.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.LiveSessions) == 0
	}, 5*time.Second, 10*time.Millisecond)
	require.Zero(t, onError.Load())
}

func TestHandler_LiveAbnormalClose(t *testing.T) {
	var onError atomic.Int32
	m := NewMetrics(prometheus.NewRegistry())
	srv := httptest.NewServer(&Handler{
		Metrics: m,
		Logger:  discardLogger(),
		OnError: func(*http.Request, error) { onError.Add(1) },
	})
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/red", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.LiveSessions) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Drop the connection without a close frame.
	require.NoError(t, ws.NetConn().Close())

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.LiveSessions) == 0
	}, 5*time.Second, 10*time.Millisecond)
	require.Zero(t, onError.Load())
}
