package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
	"github.com/wricardo/rpsls/game/session"
)

// Options wires a Service
type Options struct {
	Conn     Connection
	Identity IdentityProvider
	Resolver *session.Resolver

	// Link renders the current share link, usually the resolver's address
	Link fmt.Stringer

	ServerURL   string
	LockPolicy  engine.LockPolicy
	LockTimeout time.Duration

	Logger zerolog.Logger
	Now    func() time.Time
}

// Service runs one game client. Pushes, plays, state reads and lock expiry
// are all handled by a single event loop goroutine.
type Service struct {
	conn     Connection
	identity IdentityProvider
	resolver *session.Resolver
	link     fmt.Stringer
	engine   *engine.Engine
	logger   zerolog.Logger
	now      func() time.Time

	serverURL string

	plays chan playRequest
	reads chan chan engine.State
	quit  chan struct{}
	done  chan struct{}

	running   chan struct{}
	quitOnce  sync.Once
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error

	mu        sync.RWMutex
	started   bool
	userID    string
	joined    bool
	status    ConnectionStatus
	startedAt time.Time
	last      engine.State

	subMu   sync.Mutex
	subs    map[int]chan engine.State
	nextSub int
}

var _ GameService = (*Service)(nil)

// New validates opts and creates an unstarted Service
func New(opts Options) (*Service, error) {
	if opts.Conn == nil {
		return nil, errors.New("connection is required")
	}
	if opts.Identity == nil {
		return nil, errors.New("identity provider is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("session resolver is required")
	}

	eng, err := engine.NewEngine(opts.LockPolicy, opts.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid lock settings: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		conn:      opts.Conn,
		identity:  opts.Identity,
		resolver:  opts.Resolver,
		link:      opts.Link,
		engine:    eng,
		logger:    opts.Logger,
		now:       now,
		serverURL: opts.ServerURL,
		plays:     make(chan playRequest),
		reads:     make(chan chan engine.State),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		running:   make(chan struct{}),
		status:    StatusIdle,
		subs:      make(map[int]chan engine.State),
	}, nil
}

// Start resolves identity and handshake, opens the connection and runs the
// event loop until the connection ends, Close is called or ctx is done.
// A dropped connection is not an error; it is reported through Info.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	userID := s.identity.UserID()
	hello := s.resolver.Handshake(userID)

	// A joined session id is known before the server says anything
	st := s.engine.GetState()
	st.GameID = hello.GameID
	s.engine.SetState(st)

	s.mu.Lock()
	s.userID = userID
	s.joined = hello.Action == protocol.ActionJoin
	s.last = st
	s.mu.Unlock()

	s.logger.Info().
		Str("action", string(hello.Action)).
		Str("game_id", hello.GameID).
		Str("server", s.serverURL).
		Msg("starting game")

	if err := s.conn.Open(ctx, hello); err != nil {
		s.setStatus(StatusLost)
		s.finish()
		return fmt.Errorf("failed to open game connection: %w", err)
	}

	close(s.running)

	s.mu.Lock()
	s.status = StatusConnected
	s.startedAt = s.now()
	s.mu.Unlock()

	s.loop(ctx)
	return nil
}

func (s *Service) loop(ctx context.Context) {
	defer s.finish()

	var tick <-chan time.Time
	if timeout := s.engine.LockTimeout(); timeout > 0 {
		ticker := time.NewTicker(expiryInterval(timeout))
		defer ticker.Stop()
		tick = ticker.C
	}

	pushes := s.conn.Pushes()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return

		case <-s.quit:
			s.shutdown()
			return

		case push, ok := <-pushes:
			if !ok {
				s.connectionEnded()
				return
			}
			s.changed(s.engine.Apply(push))

		case req := <-s.plays:
			accepted, err := s.submit(req.play)
			req.reply <- playResult{accepted: accepted, err: err}

		case reply := <-s.reads:
			reply <- s.engine.GetState()

		case now := <-tick:
			if s.engine.Expire(now) {
				s.logger.Warn().
					Dur("timeout", s.engine.LockTimeout()).
					Msg("no response to play; releasing lock")
				s.changed(s.engine.GetState())
			}
		}
	}
}

// submit runs on the event loop
func (s *Service) submit(play protocol.Play) (bool, error) {
	prev := s.engine.GetState()
	if prev.GameID == "" {
		return false, ErrNoSession
	}

	msg, ok := s.engine.TrySubmit(s.currentUserID(), play, s.now())
	if !ok {
		s.logger.Debug().Str("play", play.String()).Msg("play ignored; waiting for server")
		return false, nil
	}

	if err := s.conn.Send(msg); err != nil {
		s.engine.SetState(prev)
		return false, fmt.Errorf("failed to send play: %w", err)
	}

	s.logger.Info().Str("play", play.String()).Int("round", *msg.Round).Msg("play sent")
	s.changed(s.engine.GetState())
	return true, nil
}

// changed publishes a new state and runs the address sync effect
func (s *Service) changed(st engine.State) {
	s.mu.Lock()
	s.last = st
	s.mu.Unlock()

	if st.GameID != "" {
		wrote, err := s.resolver.Sync(st.GameID)
		if err != nil {
			s.logger.Warn().Err(err).Msg("could not record game id in share link")
		} else if wrote {
			s.logger.Info().Str("game_id", st.GameID).Str("link", s.shareLink()).Msg("game created")
		}
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		// Keep only the newest snapshot for slow subscribers
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

func (s *Service) connectionEnded() {
	<-s.conn.Done()
	if s.conn.Clean() {
		s.logger.Info().Msg("game server closed the connection")
		s.setStatus(StatusClosed)
		return
	}
	s.logger.Warn().Err(s.conn.Err()).Msg("connection to game server lost; the game is frozen")
	s.setStatus(StatusLost)
}

func (s *Service) shutdown() {
	s.closeConn()
	s.setStatus(StatusClosed)
}

func (s *Service) closeConn() {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
}

// finish closes Done and every subscription
func (s *Service) finish() {
	s.doneOnce.Do(func() {
		close(s.done)

		s.subMu.Lock()
		defer s.subMu.Unlock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
	})
}

// Play validates and submits a play. It returns false with a nil error when
// an earlier play is still outstanding.
func (s *Service) Play(ctx context.Context, play protocol.Play) (bool, error) {
	if !play.Valid() {
		return false, fmt.Errorf("%w: %q", protocol.ErrInvalidPlay, play)
	}

	if !s.isRunning() {
		select {
		case <-s.done:
			return false, ErrClosed
		default:
			return false, ErrNotStarted
		}
	}

	req := playRequest{play: play, reply: make(chan playResult, 1)}
	select {
	case s.plays <- req:
	case <-s.done:
		return false, ErrClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.accepted, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// State returns the current derived state. Before the loop runs or after it
// ends this is the last published snapshot.
func (s *Service) State(ctx context.Context) (engine.State, error) {
	if !s.isRunning() {
		return s.lastState(), nil
	}

	reply := make(chan engine.State, 1)
	select {
	case s.reads <- reply:
	case <-s.done:
		return s.lastState(), nil
	case <-ctx.Done():
		return engine.State{}, ctx.Err()
	}

	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return engine.State{}, ctx.Err()
	}
}

// Info describes the client and its session
func (s *Service) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	timeout := "none"
	if t := s.engine.LockTimeout(); t > 0 {
		timeout = t.String()
	}

	return SessionInfo{
		UserID:      s.userID,
		GameID:      s.resolver.GameID(),
		ShareLink:   s.shareLink(),
		ServerURL:   s.serverURL,
		Joined:      s.joined,
		Status:      s.status,
		StartedAt:   s.startedAt,
		LockPolicy:  s.engine.Policy(),
		LockTimeout: timeout,
	}
}

// Subscribe returns a channel of state snapshots and a cancel func. The
// channel holds only the newest snapshot and is closed when the game ends.
func (s *Service) Subscribe() (<-chan engine.State, func()) {
	ch := make(chan engine.State, 1)

	s.subMu.Lock()
	select {
	case <-s.done:
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// Close stops the event loop and closes the connection
func (s *Service) Close() error {
	s.quitOnce.Do(func() { close(s.quit) })

	if !s.isRunning() {
		s.closeConn()
		s.finish()
		return s.closeErr
	}

	<-s.done
	return s.closeErr
}

// Done is closed once the game has ended
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) isRunning() bool {
	select {
	case <-s.running:
		return true
	default:
		return false
	}
}

func (s *Service) lastState() engine.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Service) currentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Service) setStatus(status ConnectionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Service) shareLink() string {
	if s.link == nil {
		return ""
	}
	return s.link.String()
}

// expiryInterval is how often a stuck lock is checked for
func expiryInterval(timeout time.Duration) time.Duration {
	interval := timeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	if interval > time.Second {
		interval = time.Second
	}
	return interval
}
