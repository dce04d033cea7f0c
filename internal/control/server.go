package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/liuscraft/softmix/internal/events"
	"github.com/liuscraft/softmix/internal/logging"
)

// Config 控制服务器配置
type Config struct {
	ListenAddr string
	Path       string
}

// DefaultConfig 默认配置：仅监听本机
func DefaultConfig() Config {
	return Config{
		ListenAddr: "127.0.0.1:8765",
		Path:       "/ws",
	}
}

const (
	writeTimeout    = 5 * time.Second
	maxMessageBytes = 64 << 10
)

// Server 通过 WebSocket 接收 JSON 命令，并向所有客户端推送混音器事件
type Server struct {
	ctrl     Controller
	cfg      Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	bus    *events.Bus
	subIDs []events.SubscriptionID
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewServer 创建控制服务器。bus 可以为 nil，此时不推送事件。
func NewServer(ctrl Controller, bus *events.Bus, cfg Config) *Server {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	s := &Server{
		ctrl: ctrl,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// 控制端口默认只绑定本机，不校验来源
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		bus:     bus,
	}
	if bus != nil {
		s.subIDs = append(s.subIDs,
			bus.Subscribe(events.EventTypeStreamFinished, s.onStreamFinished),
			bus.Subscribe(events.EventTypeBackendFailed, s.onBackendFailed),
		)
	}
	return s
}

// Handler 返回挂载在配置路径上的 HTTP 处理器
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s)
	return mux
}

// ServeHTTP 升级连接并处理该客户端的命令
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("ControlServer: upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()
	logging.Infof("ControlServer: client connected from %s (%d clients)", r.RemoteAddr, count)

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		_ = conn.Close()
		logging.Infof("ControlServer: client %s disconnected", r.RemoteAddr)
	}()

	s.serveClient(c)
}

func (s *Server) serveClient(c *client) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debugf("ControlServer: read failed: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var resp Response
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			resp = Response{Type: TypeReply, Error: fmt.Sprintf("invalid request: %v", err)}
		} else {
			resp = Dispatch(s.ctrl, req)
			if !resp.OK {
				logging.Warnf("ControlServer: %s failed: %s", req.Action, resp.Error)
			} else {
				logging.Debugf("ControlServer: %s %s ok", req.Action, req.Name)
			}
		}

		if err := c.send(resp); err != nil {
			logging.Debugf("ControlServer: write failed: %v", err)
			return
		}
	}
}

func (s *Server) onStreamFinished(event events.Event) {
	e := event.(events.StreamFinished)
	s.broadcast(Response{Type: TypeEvent, OK: true, Event: EventStreamFinished, Name: e.Name})
}

func (s *Server) onBackendFailed(event events.Event) {
	e := event.(events.BackendFailed)
	msg := "output backend failed"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	s.broadcast(Response{Type: TypeEvent, Event: EventBackendFailed, Error: msg})
}

func (s *Server) broadcast(resp Response) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.send(resp); err != nil {
			logging.Debugf("ControlServer: push %s failed: %v", resp.Event, err)
		}
	}
}

// ClientCount 返回当前连接的客户端数量
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe 监听配置地址直到 ctx 结束
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return logError("ControlServer: listen on %s failed: %v", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在 ln 上提供服务直到 ctx 结束，然后关闭所有客户端连接
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logging.Infof("ControlServer: listening on ws://%s%s", ln.Addr(), s.cfg.Path)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return logError("ControlServer: serve failed: %v", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	// Shutdown 不会关闭已升级的连接
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return logError("ControlServer: shutdown failed: %v", err)
	}
	return nil
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	}
}

// Close 取消事件订阅
func (s *Server) Close() {
	if s.bus == nil {
		return
	}
	s.bus.Unsubscribe(events.EventTypeStreamFinished, s.subIDs[0])
	s.bus.Unsubscribe(events.EventTypeBackendFailed, s.subIDs[1])
}

func logError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	logging.Errorf("%s", msg)
	return fmt.Errorf("%s", msg)
}
