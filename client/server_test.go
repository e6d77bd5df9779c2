package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeServer 测试用的 WebSocket 服务端：记录收到的帧，测试可主动推送
type fakeServer struct {
	srv      *httptest.Server
	conns    chan *websocket.Conn
	received chan Envelope
	readErrs chan error // 每条连接读循环退出时的错误

	mu  sync.Mutex
	all []*websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		conns:    make(chan *websocket.Conn, 8),
		received: make(chan Envelope, 256),
		readErrs: make(chan error, 8),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.all = append(fs.all, ws)
		fs.mu.Unlock()
		fs.conns <- ws
		go fs.readLoop(ws)
	}))
	t.Cleanup(fs.close)
	return fs
}

func (fs *fakeServer) readLoop(ws *websocket.Conn) {
	for {
		_, b, err := ws.ReadMessage()
		if err != nil {
			select {
			case fs.readErrs <- err:
			default:
			}
			return
		}
		if env, err := DecodeEnvelope(b); err == nil {
			fs.received <- env
		}
	}
}

func (fs *fakeServer) close() {
	fs.mu.Lock()
	for _, ws := range fs.all {
		_ = ws.Close()
	}
	fs.mu.Unlock()
	fs.srv.Close()
}

func (fs *fakeServer) URL() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

// accept 等待下一条客户端连接
func (fs *fakeServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-fs.conns:
		return ws
	case <-time.After(3 * time.Second):
		t.Fatal("no client connection")
		return nil
	}
}

// next 等待下一条客户端发来的帧
func (fs *fakeServer) next(t *testing.T) Envelope {
	t.Helper()
	select {
	case env := <-fs.received:
		return env
	case <-time.After(3 * time.Second):
		t.Fatal("no frame from client")
		return Envelope{}
	}
}

// readErr 等待某条连接的读循环退出
func (fs *fakeServer) readErr(t *testing.T) error {
	t.Helper()
	select {
	case err := <-fs.readErrs:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("connection still open")
		return nil
	}
}

// quiet 断言一段时间内客户端没有再发送任何帧
func (fs *fakeServer) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case env := <-fs.received:
		t.Fatalf("unexpected frame %q: %s", env.Event, env.Data)
	case <-time.After(d):
	}
}

func push(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	b, err := Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, b))
}
