package run

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"appforge/internal/util/jsonutil"
)

// GenerateFailedMessage is the body sent when a run fails before any frame.
const GenerateFailedMessage = "Failed to generate app"

// FrameWriter carries frames to one client.
type FrameWriter interface {
	WriteFrame(f Frame) error
	// Abort reports a fatal run error and ends the stream.
	Abort(err error)
}

// SSEWriter streams frames as server-sent events. Headers are committed
// with the first frame, so Abort can still answer with a plain error
// response until then.
type SSEWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	mu      sync.Mutex
	started bool
}

func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	return &SSEWriter{w: w, rc: http.NewResponseController(w)}
}

// Started reports whether any frame has been sent.
func (s *SSEWriter) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *SSEWriter) WriteFrame(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(f)
}

func (s *SSEWriter) writeLocked(f Frame) error {
	raw, err := EncodeSSE(f)
	if err != nil {
		return err
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := s.w.Write(raw); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (s *SSEWriter) Abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.w.Header().Set("Content-Type", "application/json")
		s.w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(s.w).Encode(map[string]string{"error": GenerateFailedMessage})
		return
	}
	_ = s.writeLocked(Frame{Type: FrameError, Message: errorMessage(err)})
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "Generation failed"
	}
	return err.Error()
}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

// WSWriter sends each frame as one websocket text message and keeps the
// connection alive with pings until Close.
type WSWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
	stop chan struct{}
	once sync.Once
}

func NewWSWriter(conn *websocket.Conn) *WSWriter {
	w := &WSWriter{conn: conn, stop: make(chan struct{})}
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go w.pingLoop()
	return w
}

func (w *WSWriter) pingLoop() {
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.mu.Lock()
			err := w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err == nil {
				err = w.conn.WriteMessage(websocket.PingMessage, nil)
			}
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (w *WSWriter) WriteFrame(f Frame) error {
	payload, err := jsonutil.MarshalNoEscape(f)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *WSWriter) Abort(err error) {
	_ = w.WriteFrame(Frame{Type: FrameError, Message: errorMessage(err)})
}

// Close stops pinging and sends a normal close message.
func (w *WSWriter) Close() error {
	w.once.Do(func() { close(w.stop) })
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
