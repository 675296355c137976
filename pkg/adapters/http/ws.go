package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingEvery    = (wsPongWait * 9) / 10
	wsMaxFrameSize = 8 << 10
)

// Frame types exchanged over the socket.
const (
	FrameUserMessage = "user message"
	FrameBotMessage  = "bot message"
	FrameError       = "error"
)

// ErrorMessage is sent when a message could not be processed at all.
const ErrorMessage = "Sorry, there was an error processing your message."

// InboundFrame is a client message. A text frame that is not JSON is taken
// as the message text itself.
type InboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// OutboundFrame is a server message.
type OutboundFrame struct {
	Type          string       `json:"type"`
	Text          string       `json:"text"`
	HTML          string       `json:"html,omitempty"`
	Phase         domain.Phase `json:"phase,omitempty"`
	NodeID        string       `json:"node_id,omitempty"`
	LowConfidence bool         `json:"low_confidence,omitempty"`
	Fallback      bool         `json:"fallback,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
}

// HandleWebSocket handles GET /ws. One socket is one session: it opens on
// connect, every user message is one turn, and it is discarded on disconnect.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := s.logger.With("connection_id", connID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	conn.SetReadLimit(wsMaxFrameSize)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan OutboundFrame, 16)
	writerDone := make(chan struct{})
	go s.writeLoop(ctx, cancel, conn, writeCh, writerDone)
	hangUp := func() {
		close(writeCh)
		<-writerDone
	}

	// Unblock the reader when the server shuts down or the writer fails.
	unblock := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer unblock()

	greeting, err := s.Engine.OnConnect(ctx, connID)
	if err != nil {
		logger.Error("failed to open session", "err", err)
		s.push(ctx, writeCh, OutboundFrame{Type: FrameError, Text: ErrorMessage})
		hangUp()
		return
	}
	logger.Info("client connected", "remote", r.RemoteAddr)

	defer func() {
		if err := s.Engine.OnDisconnect(context.WithoutCancel(ctx), connID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			logger.Warn("failed to close session", "err", err)
		}
		logger.Info("client disconnected")
	}()

	s.push(ctx, writeCh, s.botFrame(greeting))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				logger.Debug("websocket read failed", "err", err)
			}
			hangUp()
			return
		}

		text, ok := parseInbound(data)
		if !ok {
			continue
		}

		reply, err := s.Engine.OnMessage(ctx, connID, text)
		if err != nil {
			logger.Error("failed to handle message", "err", err)
			s.push(ctx, writeCh, OutboundFrame{Type: FrameError, Text: ErrorMessage})
			continue
		}
		s.push(ctx, writeCh, s.botFrame(reply))
	}
}

// parseInbound extracts the user text of a frame. Frames of other types and
// empty messages are ignored.
func parseInbound(data []byte) (string, bool) {
	var in InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		text := strings.TrimSpace(string(data))
		return text, text != ""
	}
	if in.Type != "" && in.Type != FrameUserMessage {
		return "", false
	}
	return in.Text, strings.TrimSpace(in.Text) != ""
}

func (s *Server) botFrame(reply parley.Reply) OutboundFrame {
	out := OutboundFrame{
		Type:          FrameBotMessage,
		Text:          reply.Text,
		Phase:         reply.Phase,
		NodeID:        reply.NodeID,
		LowConfidence: reply.LowConfidence,
		Fallback:      reply.Fallback,
	}
	html, err := s.markup.HTML(reply.Text)
	if err != nil {
		s.logger.Warn("markdown rendering failed", "err", err)
		return out
	}
	out.HTML = html
	return out
}

func (s *Server) push(ctx context.Context, ch chan<- OutboundFrame, out OutboundFrame) {
	select {
	case ch <- out:
	case <-ctx.Done():
	}
}

// writeLoop owns all writes to conn. It drains ch until it is closed, then
// says goodbye; it cancels the connection context when it stops.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, ch <-chan OutboundFrame, done chan<- struct{}) {
	defer close(done)
	defer cancel()
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	goodbye := func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait))
	}

	for {
		select {
		case <-ctx.Done():
			goodbye()
			return
		case out, ok := <-ch:
			if !ok {
				goodbye()
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
