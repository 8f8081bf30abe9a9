package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/san-kum/sortviz/internal/config"
	"github.com/san-kum/sortviz/internal/dataset"
	"github.com/san-kum/sortviz/internal/loader"
	"github.com/san-kum/sortviz/internal/render"
	"github.com/san-kum/sortviz/internal/runner"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = pongWait * 9 / 10

	frameBuffer = 4
	eventBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type inbound struct {
	Type   string `json:"type"`
	Preset string `json:"preset,omitempty"`
	Code   string `json:"code,omitempty"`
	Size   int    `json:"size,omitempty"`
	Skip   int    `json:"skip,omitempty"`
	Seed   int64  `json:"seed,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Preset  string `json:"preset,omitempty"`
	Size    int    `json:"size,omitempty"`
	Skip    int    `json:"skip,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Frames  uint64 `json:"frames,omitempty"`
	Sorted  bool   `json:"sorted,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// session is one websocket client. It owns a single runner; throttles are kept per frame
// skip so a counter is never shared between cadences.
type session struct {
	ctx    context.Context
	stop   context.CancelFunc
	h      *Handler
	logger *zap.Logger

	surface *frameSurface
	clock   *render.TickerClock
	grid    *render.GridRenderer
	runner  *runner.Runner

	mu        sync.Mutex
	busy      bool
	throttles map[int]*render.Throttle
	active    *render.Throttle

	cancelPending atomic.Bool

	frames chan []byte
	events chan outbound
	wg     sync.WaitGroup
}

// frameSurface sends every presented frame to the client as a PNG.
type frameSurface struct {
	*render.ImageSurface
	send func([]byte)
}

func (s *frameSurface) Present() error {
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	s.send(buf.Bytes())
	return nil
}

func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s, err := h.newSession(ctx, cancel)
	if err != nil {
		h.opts.Logger.Error("create session", zap.Error(err))
		return
	}
	defer s.close()
	s.logger.Info("session opened", zap.String("remote", r.RemoteAddr))

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.writeLoop(conn)

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			s.logger.Info("session closed")
			return
		}
		switch msg.Type {
		case "start":
			if err := s.start(msg); err != nil {
				s.sendEvent(errorEvent(err))
			}
		case "cancel":
			s.cancel()
		case "ping":
			s.sendEvent(outbound{Type: "pong"})
		default:
			s.sendEvent(outbound{Type: "error", Code: "bad_request", Error: fmt.Sprintf("unknown message type %q", msg.Type)})
		}
	}
}

func (h *Handler) newSession(ctx context.Context, stop context.CancelFunc) (*session, error) {
	img, err := render.NewImageSurface(h.opts.Width, h.opts.Height)
	if err != nil {
		return nil, err
	}
	clock, err := render.NewTickerClock(h.opts.FPS)
	if err != nil {
		img.Close()
		return nil, err
	}
	s := &session{
		ctx:       ctx,
		stop:      stop,
		h:         h,
		logger:    h.opts.Logger.Named("session"),
		clock:     clock,
		throttles: make(map[int]*render.Throttle),
		frames:    make(chan []byte, frameBuffer),
		events:    make(chan outbound, eventBuffer),
	}
	s.surface = &frameSurface{ImageSurface: img, send: s.pushFrame}
	s.grid = render.NewGridRenderer(s.surface, clock)
	s.runner = runner.New(runner.SnapshooterFunc(s.snapshot), runner.WithLogger(s.logger))
	return s, nil
}

func (s *session) close() {
	s.stop()
	s.wg.Wait()
	s.clock.Stop()
	s.surface.Close()
}

func (s *session) writeLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	defer s.stop()

	for {
		var err error
		select {
		case <-s.ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case ev := <-s.events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteJSON(ev)
		case frame := <-s.frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.BinaryMessage, frame)
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			s.logger.Debug("websocket write failed", zap.Error(err))
			conn.Close()
			return
		}
	}
}

// pushFrame never blocks the run: a slow client loses its oldest queued frame.
func (s *session) pushFrame(frame []byte) {
	select {
	case s.frames <- frame:
		return
	default:
	}
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- frame:
	default:
	}
}

func (s *session) sendEvent(ev outbound) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *session) snapshot(ctx context.Context, data []int) error {
	if s.cancelPending.Load() {
		s.runner.Cancel()
	}
	s.mu.Lock()
	th := s.active
	s.mu.Unlock()
	return th.Snapshot(ctx, data)
}

func (s *session) throttleFor(skip int) (*render.Throttle, error) {
	if th, ok := s.throttles[skip]; ok {
		return th, nil
	}
	th, err := render.NewThrottle(s.grid, skip)
	if err != nil {
		return nil, err
	}
	s.throttles[skip] = th
	return th, nil
}

func (s *session) start(msg inbound) error {
	p, err := s.h.resolve(msg)
	if err != nil {
		return err
	}
	algo, err := s.h.opts.Loader.Load(p.Code)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return errBusy
	}
	th, err := s.throttleFor(p.Skip)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy = true
	s.active = th
	s.mu.Unlock()
	s.cancelPending.Store(false)

	data := dataset.Shuffled(p.Size, msg.Seed)
	if err := s.grid.RenderNow(data); err != nil {
		s.finish()
		return err
	}
	s.sendEvent(outbound{Type: "started", Preset: p.Name, Size: p.Size, Skip: p.Skip})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(p, algo, th, data)
	}()
	return nil
}

func (s *session) run(p config.Preset, algo runner.AlgorithmFunc, th *render.Throttle, data []int) {
	outcome, err := s.runner.Run(s.ctx, algo, data)
	if outcome != runner.Failed {
		if rerr := s.grid.RenderNow(data); rerr != nil {
			s.logger.Warn("final render failed", zap.Error(rerr))
		}
	}
	ev := outbound{
		Type:    "done",
		Preset:  p.Name,
		Outcome: outcome.String(),
		Frames:  th.Frames(),
		Sorted:  dataset.IsSorted(data),
	}
	if err != nil {
		ev.Error = err.Error()
		s.logger.Info("run failed", zap.String("preset", p.Name), zap.Error(err))
	}
	// free the session before reporting so the client may start again right away
	s.finish()
	s.sendEvent(ev)
}

func (s *session) finish() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *session) cancel() {
	s.mu.Lock()
	busy := s.busy
	s.mu.Unlock()
	if !busy {
		return
	}
	s.cancelPending.Store(true)
	s.runner.Cancel()
}

var errBusy = errors.New("a run is already in progress")

func errorEvent(err error) outbound {
	ev := outbound{Type: "error", Code: "bad_request", Error: err.Error()}
	var jsErr *loader.JSError
	if errors.As(err, &jsErr) {
		ev.Code = string(jsErr.Type)
	}
	if errors.Is(err, errBusy) {
		ev.Code = "busy"
	}
	return ev
}
