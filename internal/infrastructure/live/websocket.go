package live

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tasktracker/internal/core/ports"
	apperrors "tasktracker/pkg/errors"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WebSocketTransport receives the same update payloads over a WebSocket at
// <base><path>?token=, one text frame per event.
type WebSocketTransport struct {
	endpoint     string
	dialer       *websocket.Dialer
	pingInterval time.Duration
	readLimit    int64
}

func NewWebSocketTransport(baseURL, path string, pingInterval time.Duration, maxMessageSize int64) *WebSocketTransport {
	return &WebSocketTransport{
		endpoint:     wsURL(strings.TrimRight(baseURL, "/") + path),
		dialer:       websocket.DefaultDialer,
		pingInterval: pingInterval,
		readLimit:    maxMessageSize,
	}
}

func wsURL(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	}
	return httpURL
}

func (t *WebSocketTransport) Name() string { return "websocket" }

func (t *WebSocketTransport) Connect(ctx context.Context, token string) (ports.LiveStream, error) {
	u := t.endpoint + "?" + url.Values{"token": {token}}.Encode()

	conn, resp, err := t.dialer.DialContext(ctx, u, http.Header{})
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, apperrors.NewAppError(apperrors.CodeForStatus(resp.StatusCode),
				fmt.Sprintf("live updates rejected with status %d", resp.StatusCode), resp.StatusCode)
		}
		return nil, apperrors.NewTransportError(err)
	}
	if t.readLimit > 0 {
		conn.SetReadLimit(t.readLimit)
	}

	s := &wsStream{conn: conn, done: make(chan struct{})}
	if t.pingInterval > 0 {
		readTimeout := 2 * t.pingInterval
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
		go s.pingLoop(t.pingInterval)
	}
	return s, nil
}

type wsStream struct {
	conn *websocket.Conn
	wmu  sync.Mutex
	done chan struct{}
	once sync.Once
}

func (s *wsStream) Next() ([]byte, error) {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, apperrors.NewTransportError(err)
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (s *wsStream) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.wmu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wmu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.wmu.Unlock()
		err = s.conn.Close()
	})
	return err
}
