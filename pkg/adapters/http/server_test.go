package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/parley"
	parleyhttp "github.com/aretw0/parley/pkg/adapters/http"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs() catalog.Documents {
	return catalog.Documents{
		Dialogue: []catalog.NodeRecord{
			{ID: "HELLO", Response: "Hi there! Tea or **coffee**?", NextResponseID: "none",
				Options: map[string]string{"tea": "TEA", "coffee": "COFFEE"}},
			{ID: "TEA", Response: "Earl Grey it is.", NextResponseID: "end"},
			{ID: "COFFEE", Response: "Espresso coming up.", NextResponseID: "end"},
		},
		Gated:   []catalog.IntentRecord{},
		Ungated: []catalog.IntentRecord{{Response: "You're welcome!", ListOfWords: "thanks"}},
	}
}

func newEngine(t *testing.T) *parley.Engine {
	t.Helper()
	eng, err := parley.New(parley.WithLoader(memory.NewLoader(docs())))
	require.NoError(t, err)
	return eng
}

func startServer(t *testing.T, eng parleyhttp.Engine, opts ...parleyhttp.Option) (*parleyhttp.Server, *httptest.Server) {
	t.Helper()
	srv := parleyhttp.NewServer(eng, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) parleyhttp.OutboundFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out parleyhttp.OutboundFrame
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestWebSocket_Conversation(t *testing.T) {
	eng := newEngine(t)
	_, ts := startServer(t, eng)
	conn := dial(t, ts, "http://localhost:3000")

	greeting := readFrame(t, conn)
	assert.Equal(t, parleyhttp.FrameBotMessage, greeting.Type)
	assert.Equal(t, "Hi there! Tea or **coffee**?", greeting.Text)
	assert.Equal(t, "<p>Hi there! Tea or <strong>coffee</strong>?</p>", greeting.HTML)
	assert.Equal(t, "HELLO", greeting.NodeID)

	require.NoError(t, conn.WriteJSON(parleyhttp.InboundFrame{Type: parleyhttp.FrameUserMessage, Text: "juice"}))
	fallback := readFrame(t, conn)
	assert.True(t, fallback.Fallback)
	assert.Equal(t, parley.DefaultFallbackMessage, fallback.Text)

	require.NoError(t, conn.WriteJSON(parleyhttp.InboundFrame{Type: parleyhttp.FrameUserMessage, Text: "Coffee."}))
	reply := readFrame(t, conn)
	assert.Equal(t, "Espresso coming up.", reply.Text)
	assert.Equal(t, domain.PhaseFreeText, reply.Phase)

	// Plain text frames are accepted too.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("thanks")))
	assert.Equal(t, "You're welcome!", readFrame(t, conn).Text)

	ids, err := eng.Sessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	assert.Eventually(t, func() bool {
		ids, err := eng.Sessions(context.Background())
		return err == nil && len(ids) == 0
	}, 5*time.Second, 20*time.Millisecond, "session is discarded on disconnect")
}

func TestWebSocket_IgnoresOtherFrames(t *testing.T) {
	_, ts := startServer(t, newEngine(t))
	conn := dial(t, ts, "")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "typing"}))
	require.NoError(t, conn.WriteJSON(parleyhttp.InboundFrame{Type: parleyhttp.FrameUserMessage, Text: "  "}))
	require.NoError(t, conn.WriteJSON(parleyhttp.InboundFrame{Type: parleyhttp.FrameUserMessage, Text: "tea"}))

	assert.Equal(t, "Earl Grey it is.", readFrame(t, conn).Text)
}

func TestWebSocket_RejectsUnknownOrigin(t *testing.T) {
	_, ts := startServer(t, newEngine(t))

	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_UnavailableEngine(t *testing.T) {
	eng, err := parley.New(parley.WithLoader(memory.NewLoader(catalog.Documents{})), parley.WithDegradedMode(true))
	require.NoError(t, err)
	_, ts := startServer(t, eng)
	conn := dial(t, ts, "")

	out := readFrame(t, conn)
	assert.Equal(t, parleyhttp.FrameError, out.Type)
	assert.Equal(t, parleyhttp.ErrorMessage, out.Text)
}

func TestServer_CloseHangsUp(t *testing.T) {
	srv, ts := startServer(t, newEngine(t))
	conn := dial(t, ts, "")
	readFrame(t, conn)

	srv.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestRoutes(t *testing.T) {
	eng := newEngine(t)
	_, ts := startServer(t, eng, parleyhttp.WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})))

	t.Run("Health", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body parleyhttp.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body.Status)
		assert.False(t, body.Degraded)
	})

	t.Run("Graph", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/graph")
		require.NoError(t, err)
		defer resp.Body.Close()

		var nodes []domain.DialogueNode
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&nodes))
		assert.Len(t, nodes, 3)
	})

	t.Run("Mermaid With Overlay", func(t *testing.T) {
		_, err := eng.OnConnect(context.Background(), "conn-x")
		require.NoError(t, err)

		resp, err := http.Get(ts.URL + "/graph.mmd?session=conn-x")
		require.NoError(t, err)
		defer resp.Body.Close()

		buf := new(strings.Builder)
		_, _ = io.Copy(buf, resp.Body)
		assert.Contains(t, buf.String(), "graph TD")
		assert.Contains(t, buf.String(), "class HELLO current;")
	})

	t.Run("Mermaid Unknown Session", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/graph.mmd?session=ghost")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestCORS(t *testing.T) {
	h := parleyhttp.NewHandler(newEngine(t), parleyhttp.WithAllowedOrigins("https://chat.example.com"))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{name: "Allowed", method: http.MethodGet, origin: "https://chat.example.com", wantStatus: http.StatusOK, wantAllow: "https://chat.example.com"},
		{name: "Other Origin", method: http.MethodGet, origin: "http://localhost:3000", wantStatus: http.StatusOK},
		{name: "Preflight Allowed", method: http.MethodOptions, origin: "https://chat.example.com", wantStatus: http.StatusNoContent, wantAllow: "https://chat.example.com"},
		{name: "Preflight Rejected", method: http.MethodOptions, origin: "http://localhost:3000", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>chat</h1>"), 0o644))

	h := parleyhttp.NewHandler(newEngine(t), parleyhttp.WithPublicDir(dir))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>chat</h1>")
}
