package link

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arunika/dollcore/pkg/devcfg"
	"github.com/arunika/dollcore/pkg/hal"
)

// Config assembles a Supervisor.
type Config struct {
	Device devcfg.Config
	Radio  hal.Radio

	// Dialer opens the duplex channel. Defaults to WebsocketDialer.
	Dialer Dialer

	// Log defaults to slog.Default.
	Log *slog.Logger

	// RequestID stamps each dial attempt's X-Request-Id header. Defaults
	// to a random UUID.
	RequestID func() string

	// BackoffRand overrides the jitter source for tests.
	BackoffRand func() float64

	AssocTimeout     time.Duration
	HandshakeTimeout time.Duration
	BackoffBase      time.Duration
	BackoffCap       time.Duration
	KeepaliveIdle    time.Duration
	PongTimeout      time.Duration
}

// Supervisor drives the session toward channel-up and reports transitions.
type Supervisor struct {
	cfg Config
	log *slog.Logger
	url string

	wantUp bool
	epoch  uint32
	conn   Conn

	backoff *Backoff
	nextTry time.Time

	attempt *attempt

	lastSend     time.Time
	awaitingPong bool
	pongDeadline time.Time

	pending []Event
}

type attempt struct {
	cancel  context.CancelFunc
	done    chan attemptResult
	started time.Time
}

type attemptResult struct {
	conn Conn
	err  error
}

func New(cfg Config) *Supervisor {
	if cfg.Dialer == nil {
		cfg.Dialer = &WebsocketDialer{}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.RequestID == nil {
		cfg.RequestID = uuid.NewString
	}
	if cfg.AssocTimeout <= 0 {
		cfg.AssocTimeout = DefaultAssocTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultBackoffCap
	}
	if cfg.KeepaliveIdle <= 0 {
		cfg.KeepaliveIdle = DefaultKeepaliveIdle
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = DefaultPongTimeout
	}
	return &Supervisor{
		cfg: cfg,
		log: cfg.Log,
		url: ChannelURL(cfg.Device),
		backoff: &Backoff{
			Base:   cfg.BackoffBase,
			Cap:    cfg.BackoffCap,
			Jitter: defaultJitter,
			Rand:   cfg.BackoffRand,
		},
	}
}

// ChannelURL builds the duplex channel endpoint from the device config: the
// configured scheme and host, the configured port when the URL names none,
// and the /ws path carrying the device identity.
func ChannelURL(dev devcfg.Config) string {
	u, err := url.Parse(dev.ServerURL)
	if err != nil {
		// Config validation upstream guarantees this parses.
		panic("link: invalid server URL: " + err.Error())
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), strconv.Itoa(int(dev.ServerPort)))
	}
	q := url.Values{"device_id": {dev.DeviceID}}
	out := url.URL{
		Scheme:   u.Scheme,
		Host:     host,
		Path:     strings.TrimSuffix(u.Path, "/") + "/ws",
		RawQuery: q.Encode(),
	}
	return out.String()
}

// EnsureUp asks the supervisor to hold the session up until Shutdown. The
// first attempt starts immediately when none is running.
func (s *Supervisor) EnsureUp(now time.Time) {
	s.wantUp = true
	if s.conn == nil && s.attempt == nil && !now.Before(s.nextTry) {
		s.startAttempt(now)
	}
}

// IsUp reports whether the channel is open.
func (s *Supervisor) IsUp() bool {
	return s.conn != nil
}

// State derives the session substate.
func (s *Supervisor) State() State {
	switch {
	case s.conn != nil:
		return ChannelUp
	case s.cfg.Radio.Associated():
		return WifiUp
	default:
		return Down
	}
}

// SessionEpoch returns the current epoch: zero before the first channel-up,
// then strictly increasing across reconnects.
func (s *Supervisor) SessionEpoch() uint32 {
	return s.epoch
}

// Send writes one frame to the channel. A write failure tears the channel
// down; the LinkDown event is delivered by the next Tick.
func (s *Supervisor) Send(now time.Time, frame []byte) error {
	if s.conn == nil {
		return ErrNotUp
	}
	if err := s.conn.WriteText(frame); err != nil {
		s.teardown()
		s.scheduleRetry(now)
		s.pending = append(s.pending, Event{Kind: EventLinkDown, Cause: fmt.Errorf("channel send: %w", err)})
		return fmt.Errorf("link: send: %w", err)
	}
	s.lastSend = now
	return nil
}

// TryRecv returns the next inbound frame, or false when none is buffered or
// the channel is down.
func (s *Supervisor) TryRecv() ([]byte, bool) {
	if s.conn == nil {
		return nil, false
	}
	return s.conn.TryRecv()
}

// KeepaliveDue reports that the outbound side has been idle long enough for
// a ping. The transport owns the ping frame; it calls NotePing after
// sending one.
func (s *Supervisor) KeepaliveDue(now time.Time) bool {
	return s.conn != nil && !s.awaitingPong && now.Sub(s.lastSend) >= s.cfg.KeepaliveIdle
}

// NotePing arms the pong deadline after a keepalive ping went out.
func (s *Supervisor) NotePing(now time.Time) {
	if s.conn == nil {
		return
	}
	s.awaitingPong = true
	s.pongDeadline = now.Add(s.cfg.PongTimeout)
}

// NotePong clears the pong deadline. Fed by the transport demux.
func (s *Supervisor) NotePong(now time.Time) {
	s.awaitingPong = false
}

// Tick advances the supervisor: it notices radio loss, dead channels, and
// overdue pongs, reaps the in-flight dial attempt, and launches the next
// attempt when the backoff allows. Returned events are in occurrence order.
func (s *Supervisor) Tick(now time.Time) []Event {
	events := s.pending
	s.pending = nil

	if s.conn != nil && !s.cfg.Radio.Associated() {
		s.teardown()
		s.scheduleRetry(now)
		s.log.Warn("link down", "cause", ErrWifiLost)
		events = append(events, Event{Kind: EventLinkDown, Cause: ErrWifiLost})
	}

	if s.conn != nil {
		if err := s.conn.Err(); err != nil {
			s.teardown()
			s.scheduleRetry(now)
			s.log.Warn("link down", "cause", err)
			events = append(events, Event{Kind: EventLinkDown, Cause: fmt.Errorf("channel receive: %w", err)})
		}
	}

	if s.conn != nil && s.awaitingPong && now.After(s.pongDeadline) {
		s.teardown()
		s.scheduleRetry(now)
		s.log.Warn("link down", "cause", ErrPongTimeout)
		events = append(events, Event{Kind: EventLinkDown, Cause: ErrPongTimeout})
	}

	if s.attempt != nil {
		select {
		case r := <-s.attempt.done:
			s.attempt.cancel()
			s.attempt = nil
			switch {
			case r.err != nil:
				if s.wantUp {
					s.scheduleRetry(now)
					s.log.Warn("link attempt failed", "err", r.err, "retry_in", s.nextTry.Sub(now))
				}
			case !s.wantUp:
				r.conn.Close()
			default:
				s.conn = r.conn
				s.epoch++
				s.backoff.Reset()
				s.nextTry = time.Time{}
				s.lastSend = now
				s.awaitingPong = false
				s.log.Info("channel up", "epoch", s.epoch)
				events = append(events, Event{Kind: EventLinkUp})
			}
		default:
			if now.Sub(s.attempt.started) > s.cfg.AssocTimeout+s.cfg.HandshakeTimeout {
				s.abandonAttempt()
				s.scheduleRetry(now)
				s.log.Warn("link attempt timed out", "retry_in", s.nextTry.Sub(now))
			}
		}
	}

	if s.wantUp && s.conn == nil && s.attempt == nil && !now.Before(s.nextTry) {
		s.startAttempt(now)
	}
	return events
}

// NextDeadline returns the earliest instant at which Tick has timed work to
// do, or zero when nothing is scheduled.
func (s *Supervisor) NextDeadline(now time.Time) time.Time {
	var d time.Time
	earliest := func(t time.Time) {
		if d.IsZero() || t.Before(d) {
			d = t
		}
	}
	if s.wantUp && s.conn == nil && s.attempt == nil {
		if s.nextTry.IsZero() {
			earliest(now)
		} else {
			earliest(s.nextTry)
		}
	}
	if s.attempt != nil {
		earliest(s.attempt.started.Add(s.cfg.AssocTimeout + s.cfg.HandshakeTimeout))
	}
	if s.conn != nil {
		if s.awaitingPong {
			earliest(s.pongDeadline)
		} else {
			earliest(s.lastSend.Add(s.cfg.KeepaliveIdle))
		}
	}
	return d
}

// Shutdown abandons any attempt, closes the channel, and releases the
// radio. No LinkDown event is produced; the caller initiated this.
func (s *Supervisor) Shutdown() {
	s.wantUp = false
	if s.attempt != nil {
		s.abandonAttempt()
	}
	s.teardown()
	s.cfg.Radio.Disassociate()
	s.nextTry = time.Time{}
	s.pending = nil
}

func (s *Supervisor) teardown() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.awaitingPong = false
}

func (s *Supervisor) scheduleRetry(now time.Time) {
	s.nextTry = now.Add(s.backoff.Next())
}

func (s *Supervisor) startAttempt(now time.Time) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &attempt{cancel: cancel, done: make(chan attemptResult, 1), started: now}
	s.attempt = a

	dev := s.cfg.Device
	needAssoc := !s.cfg.Radio.Associated()
	header := http.Header{"X-Request-Id": []string{s.cfg.RequestID()}}
	s.log.Debug("link attempt", "url", s.url, "associate", needAssoc)

	go func() {
		if needAssoc {
			actx, acancel := context.WithTimeout(ctx, s.cfg.AssocTimeout)
			err := s.cfg.Radio.Associate(actx, dev.SSID, dev.Passphrase)
			acancel()
			if err != nil {
				a.done <- attemptResult{err: fmt.Errorf("wifi associate: %w", err)}
				return
			}
		}
		hctx, hcancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
		conn, err := s.cfg.Dialer.Dial(hctx, s.url, header)
		hcancel()
		if err != nil {
			a.done <- attemptResult{err: fmt.Errorf("channel dial: %w", err)}
			return
		}
		a.done <- attemptResult{conn: conn}
	}()
}

// abandonAttempt cancels the in-flight attempt and reaps its eventual
// result so a racing success cannot leak an open connection.
func (s *Supervisor) abandonAttempt() {
	a := s.attempt
	s.attempt = nil
	a.cancel()
	go func() {
		if r := <-a.done; r.conn != nil {
			r.conn.Close()
		}
	}()
}
