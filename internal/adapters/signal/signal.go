package signal

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/adapters/platform"
	"github.com/dkeye/zoomify/internal/app"
	"github.com/dkeye/zoomify/internal/app/orch"
	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SessionWSController serves the session socket. Opening the socket mounts
// a session view for the client or reattaches to one; closing it releases
// the view, which is unmounted after the grace period.
type SessionWSController struct {
	Orch       *orch.Orchestrator
	Isolated   bool
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewSessionWSController(o *orch.Orchestrator, isolated bool, readLimit int64, pingPeriod time.Duration) *SessionWSController {
	return &SessionWSController{Orch: o, Isolated: isolated, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

// wsSessionConn is the browser end of one session view. It implements
// core.EventSink.
type wsSessionConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newWSSessionConn(conn *websocket.Conn) *wsSessionConn {
	return &wsSessionConn{conn: conn, send: make(chan []byte, 32)}
}

func (c *wsSessionConn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSessionConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

type stateMsg struct {
	Type  string             `json:"type"`
	State domain.SessionView `json:"state"`
}

type noticeMsg struct {
	Type         string            `json:"type"`
	Notification core.Notification `json:"notification"`
}

func (c *wsSessionConn) SessionChanged(view domain.SessionView) {
	sendJSON(c, stateMsg{Type: "state", State: view})
}

func (c *wsSessionConn) Notify(n core.Notification) {
	sendJSON(c, noticeMsg{Type: "notification", Notification: n})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// OverridesFromQuery reads meeting arguments from URL parameters.
func OverridesFromQuery(c *gin.Context) domain.MeetingArgs {
	enforce, _ := strconv.Atoi(c.Query("enforceGalleryView"))
	return domain.MeetingArgs{
		Topic:              c.Query("topic"),
		Signature:          c.Query("signature"),
		UserName:           c.Query("name"),
		Password:           c.Query("pwd"),
		WebEndpoint:        c.Query("webEndpoint"),
		EnforceGalleryView: enforce == 1,
	}
}

// HandleSession serves one socket. A client that still has a mounted view,
// e.g. after navigating from / to /video, reattaches to it; otherwise a new
// view is mounted and joined. Closing the socket releases the view.
func (ctl *SessionWSController) HandleSession(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	env := platform.FromRequest(c.Request, ctl.Isolated)
	overrides := OverridesFromQuery(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}
	conn := newWSSessionConn(ws)
	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)

	if mounted, ok := ctl.Orch.Attach(sid, overrides, conn); ok {
		go ctl.serve(connCtx, cancel, sid, conn, mounted)
		return
	}

	args, err := ctl.Orch.ResolveArgs(connCtx, overrides, env)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad meeting args")
		conn.Notify(core.Notification{
			Level:   core.NoticeError,
			Surface: core.SurfaceModal,
			Title:   "Unable to join",
			Message: err.Error(),
		})
		go ctl.drainAndClose(connCtx, cancel, conn)
		return
	}

	mounted, err := ctl.Orch.Mount(sid, args, env, conn)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("mount")
		go ctl.drainAndClose(connCtx, cancel, conn)
		return
	}

	// The join outlives this socket; only unmounting cancels it.
	go func() {
		if err := ctl.Orch.Start(ctx, mounted); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("session start")
		}
	}()
	go ctl.serve(connCtx, cancel, sid, conn, mounted)
}

func (ctl *SessionWSController) serve(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, conn *wsSessionConn, mounted *app.Mounted) {
	ctl.readPump(ctx, sid, conn)
	cancel()
	ctl.Orch.Release(sid, mounted, conn)
}
