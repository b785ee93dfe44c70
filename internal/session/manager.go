// Package session runs live heads-up games for the HTTP surface.
package session

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"axiomind/internal/ai"
	"axiomind/internal/config"
	"axiomind/internal/events"
	"axiomind/internal/game"
	"axiomind/internal/game/viewmodel"
	"axiomind/internal/handlog"
	"axiomind/internal/history"
)

// HandSink receives every completed hand.
type HandSink interface {
	Append(sessionID string, rec handlog.HandRecord) (history.Entry, error)
}

type Options struct {
	Bus      *events.Bus
	History  HandSink
	Settings *config.SettingsStore
	Clock    quartz.Clock
}

type Manager struct {
	bus      *events.Bus
	history  HandSink
	settings *config.SettingsStore
	clock    quartz.Clock

	mu       sync.RWMutex
	sessions map[string]*session
	// expired remembers reclaimed ids for one more TTL so late callers get
	// ErrExpired instead of ErrNotFound.
	expired map[string]time.Time
}

type session struct {
	mu sync.Mutex
	// pub orders event delivery; it is taken before mu is released.
	pub sync.Mutex

	id         string
	opponent   string
	policy     ai.Policy
	engine     *game.Engine
	seed       *uint64
	startLevel int
	handNumber int
	stamp      handlog.Stamp
	turnID     string
	status     string
	endReason  string
	winner     string
	violations int
	createdAt  time.Time
	lastActive time.Time
}

// pending collects what a locked section produced; it is flushed after the
// session state lock is released.
type pending struct {
	events    []events.Event
	hands     []handlog.HandRecord
	completed int
	drop      bool
}

func (p *pending) emit(t events.Type, payload any) {
	p.events = append(p.events, events.Event{Type: t, Payload: payload})
}

func NewManager(opts Options) *Manager {
	if opts.Bus == nil {
		opts.Bus = events.NewBus(events.DefaultCapacity)
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Settings == nil {
		opts.Settings = config.NewSettingsStore(config.DefaultSettings(config.ServerConfig{SessionTTL: 30 * time.Minute}))
	}
	return &Manager{
		bus:      opts.Bus,
		history:  opts.History,
		settings: opts.Settings,
		clock:    opts.Clock,
		sessions: map[string]*session{},
		expired:  map[string]time.Time{},
	}
}

func (m *Manager) Bus() *events.Bus { return m.bus }

func (m *Manager) ttl() time.Duration { return m.settings.Get().SessionTTL() }

// StartJanitor reclaims expired sessions every interval until ctx ends.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	m.clock.TickerFunc(ctx, interval, func() error {
		if n := m.CleanupExpired(); n > 0 {
			log.Info().Int("expired", n).Msg("sessions_reclaimed")
		}
		m.bus.Sweep()
		return nil
	}, "session", "janitor")
}

// Create starts a session and deals its first hand.
func (m *Manager) Create(cfg Config) (Info, error) {
	settings := m.settings.Get()
	level := cfg.Level
	if level == 0 {
		level = settings.DefaultLevel
	}
	opponent := strings.TrimSpace(cfg.OpponentType)
	if opponent == "" {
		opponent = settings.DefaultOpponent
	}
	var policy ai.Policy
	switch {
	case opponent == OpponentHuman:
	case strings.HasPrefix(opponent, "ai:"):
		p, err := ai.Resolve(opponent)
		if err != nil {
			return Info{}, err
		}
		policy = p
	default:
		return Info{}, ErrBadOpponent
	}
	eng, err := game.NewEngine(cfg.Seed, level)
	if err != nil {
		return Info{}, err
	}

	now := m.clock.Now()
	s := &session{
		id:         uuid.NewString(),
		opponent:   opponent,
		policy:     policy,
		engine:     eng,
		seed:       cfg.Seed,
		startLevel: level,
		status:     StatusActive,
		createdAt:  now,
		lastActive: now,
	}
	m.bus.Open(s.id)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	s.mu.Lock()
	p := &pending{}
	p.emit(events.TypeGameStarted, events.GameStarted{Level: level, Opponent: opponent, Seed: cfg.Seed})
	if err := m.startHand(s, p); err != nil {
		s.mu.Unlock()
		m.mu.Lock()
		delete(m.sessions, s.id)
		m.mu.Unlock()
		m.bus.DropSession(s.id)
		return Info{}, err
	}
	m.settle(s, p)
	info := m.infoLocked(s)
	m.release(s, p)

	log.Info().
		Str("session_id", s.id).
		Str("opponent", opponent).
		Int("level", level).
		Bool("seeded", cfg.Seed != nil).
		Msg("session_created")
	return info, nil
}

func (m *Manager) Get(id string) (Info, error) {
	s, err := m.lookup(id)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.infoLocked(s), nil
}

// State returns the game as seat sees it; -1 hides both hands.
func (m *Manager) State(id string, seat int) (viewmodel.StateView, error) {
	if seat < -1 || seat > 1 {
		return viewmodel.StateView{}, ErrInvalidSeat
	}
	s, err := m.lookup(id)
	if err != nil {
		return viewmodel.StateView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.viewLocked(s, seat), nil
}

// ProcessAction applies req and lets the ai seat reply until a human seat
// is to act again. An illegal action leaves the session untouched.
func (m *Manager) ProcessAction(id string, req ActionRequest) (ActionResult, error) {
	s, err := m.lookup(id)
	if err != nil {
		return ActionResult{}, err
	}
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return ActionResult{}, ErrGameOver
	}
	s.lastActive = m.clock.Now()
	seat := s.engine.CurrentPlayer()
	if req.Seat != nil {
		seat = *req.Seat
	}
	switch {
	case seat != 0 && seat != 1:
		s.mu.Unlock()
		return ActionResult{}, ErrInvalidSeat
	case s.policy != nil && seat == AISeat:
		s.mu.Unlock()
		return ActionResult{}, ErrAISeat
	case req.TurnID != "" && req.TurnID != s.turnID:
		s.mu.Unlock()
		return ActionResult{}, ErrStaleTurn
	}

	handID := s.stamp.HandID
	p := &pending{}
	if err := m.apply(s, p, seat, req.Action); err != nil {
		s.mu.Unlock()
		return ActionResult{}, err
	}
	m.settle(s, p)
	res := ActionResult{
		HandID:        handID,
		HandCompleted: p.completed > 0,
		GameOver:      s.status != StatusActive,
		State:         m.viewLocked(s, seat),
	}
	m.release(s, p)
	return res, nil
}

// Delete ends a session and closes its event streams.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		_, gone := m.expired[id]
		m.mu.Unlock()
		if gone {
			return ErrExpired
		}
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.mu.Lock()
	p := &pending{}
	if s.status == StatusActive {
		m.end(s, p, events.ReasonDeleted, "")
	}
	m.release(s, p)
	log.Info().Str("session_id", id).Msg("session_deleted")
	return nil
}

// CleanupExpired reclaims every session idle for longer than the TTL and
// returns how many were removed.
func (m *Manager) CleanupExpired() int {
	now := m.clock.Now()
	ttl := m.ttl()

	m.mu.Lock()
	for id, at := range m.expired {
		if now.Sub(at) > ttl {
			delete(m.expired, id)
		}
	}
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if m.expireIf(id, now, ttl) {
			n++
		}
	}
	return n
}

// Active lists live sessions, oldest first.
func (m *Manager) Active() []Info {
	m.mu.RLock()
	list := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(list))
	for _, s := range list {
		s.mu.Lock()
		out = append(out, m.infoLocked(s))
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Manager) lookup(id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	_, gone := m.expired[id]
	m.mu.RUnlock()
	if !ok {
		if gone {
			return nil, ErrExpired
		}
		return nil, ErrNotFound
	}
	now := m.clock.Now()
	ttl := m.ttl()
	s.mu.Lock()
	stale := now.Sub(s.lastActive) > ttl
	s.mu.Unlock()
	if stale && m.expireIf(id, now, ttl) {
		return nil, ErrExpired
	}
	return s, nil
}

// expireIf removes id when it has been idle longer than ttl. Only the caller
// that removes the session publishes its GameEnded event.
func (m *Manager) expireIf(id string, now time.Time, ttl time.Duration) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	s.mu.Lock()
	if now.Sub(s.lastActive) <= ttl {
		s.mu.Unlock()
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	m.expired[id] = now
	m.mu.Unlock()

	p := &pending{}
	if s.status == StatusActive {
		m.end(s, p, events.ReasonExpired, "")
	}
	idle := now.Sub(s.lastActive)
	m.release(s, p)
	log.Info().Str("session_id", id).Dur("idle", idle).Msg("session_expired")
	return true
}

func (m *Manager) startHand(s *session, p *pending) error {
	if err := s.engine.SetLevel(game.LevelAfter(s.startLevel, s.handNumber)); err != nil {
		return err
	}
	if err := s.engine.DealHand(); err != nil {
		return err
	}
	s.handNumber++
	if s.seed != nil {
		s.stamp = handlog.SeededStamp(s.handNumber)
	} else {
		s.stamp = handlog.ClockStamp(m.clock.Now(), s.handNumber)
	}
	sb, bb := s.engine.HandBlinds()
	p.emit(events.TypeHandStarted, events.HandStarted{
		HandID:     s.stamp.HandID,
		HandNumber: s.handNumber,
		Button:     s.engine.Button(),
		Level:      s.engine.Level(),
		Blinds:     game.BlindLevel{SB: sb, BB: bb},
		Stacks:     s.engine.StartStacks(),
	})
	for seat, pl := range s.engine.Players() {
		p.emit(events.TypeCardsDealt, events.CardsDealt{Seat: seat, Cards: pl.Hole})
	}
	return nil
}

func (m *Manager) apply(s *session, p *pending, seat int, a game.Action) error {
	if err := s.engine.ApplyAction(seat, a); err != nil {
		return err
	}
	h := s.engine.ActionHistory()
	last := h[len(h)-1]
	p.emit(events.TypePlayerAction, events.PlayerAction{
		HandID:        s.stamp.HandID,
		Seat:          last.Seat,
		Street:        last.Street,
		Action:        last.Action,
		Pot:           s.engine.Pot(),
		CurrentPlayer: s.engine.CurrentPlayer(),
	})
	return nil
}

// settle plays ai turns, completes hands and deals the next one until a
// human seat has to act or the game is over.
func (m *Manager) settle(s *session, p *pending) {
	for s.status == StatusActive {
		if s.engine.IsComplete() {
			m.completeHand(s, p)
			if s.status != StatusActive {
				return
			}
			if err := m.startHand(s, p); err != nil {
				log.Error().Err(err).Str("session_id", s.id).Msg("deal_failed")
				m.end(s, p, events.ReasonPlayerBusted, "")
				return
			}
			continue
		}
		seat := s.engine.CurrentPlayer()
		if s.policy == nil || seat != AISeat {
			s.turnID = history.NewID(m.clock.Now())
			return
		}
		d := ai.Decide(s.engine, s.policy, seat)
		if d.Violation != nil {
			s.violations++
		}
		if err := m.apply(s, p, seat, d.Action); err != nil {
			log.Error().Err(err).Str("session_id", s.id).Str("action", d.Action.String()).Msg("ai_action_rejected")
			return
		}
	}
}

func (m *Manager) completeHand(s *session, p *pending) {
	rec, err := handlog.FromEngine(s.engine, s.stamp)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Msg("hand_record_failed")
		return
	}
	res, _ := s.engine.Result()
	p.hands = append(p.hands, rec)
	p.completed++
	p.emit(events.TypeHandCompleted, events.HandCompleted{
		HandID:   rec.HandID,
		Winner:   rec.Winner(),
		Winners:  res.Winners,
		Pot:      res.Pot,
		Showdown: res.Showdown,
		Board:    s.engine.VisibleBoard(),
		Net:      rec.NetResult,
	})
	log.Debug().
		Str("session_id", s.id).
		Str("hand_id", rec.HandID).
		Str("winner", rec.Winner()).
		Int64("pot", res.Pot).
		Msg("hand_completed")

	players := s.engine.Players()
	for seat, pl := range players {
		if pl.Stack == 0 {
			m.end(s, p, events.ReasonPlayerBusted, players[1-seat].ID)
			return
		}
	}
}

func (m *Manager) end(s *session, p *pending, reason, winner string) {
	s.status = StatusEnded
	s.endReason = reason
	s.winner = winner
	s.turnID = ""
	p.emit(events.TypeGameEnded, events.GameEnded{Reason: reason, Winner: winner})
	p.drop = true
}

// release hands s from its state lock to its publish lock, then records
// completed hands and delivers events in production order.
func (m *Manager) release(s *session, p *pending) {
	s.pub.Lock()
	s.mu.Unlock()
	defer s.pub.Unlock()
	if m.history != nil {
		for _, rec := range p.hands {
			if _, err := m.history.Append(s.id, rec); err != nil {
				log.Error().Err(err).Str("session_id", s.id).Str("hand_id", rec.HandID).Msg("history_append_failed")
			}
		}
	}
	for _, ev := range p.events {
		m.bus.Broadcast(s.id, ev)
	}
	if p.drop {
		m.bus.DropSession(s.id)
	}
}

func (m *Manager) viewLocked(s *session, seat int) viewmodel.StateView {
	return viewmodel.BuildSeatState(s.engine.Snapshot(), seat, s.stamp.HandID, s.turnID)
}

func (m *Manager) infoLocked(s *session) Info {
	players := s.engine.Players()
	return Info{
		ID:            s.id,
		Status:        s.status,
		Opponent:      s.opponent,
		Seed:          s.seed,
		Level:         s.engine.Level(),
		HandNumber:    s.handNumber,
		HandID:        s.stamp.HandID,
		TurnID:        s.turnID,
		CurrentPlayer: s.engine.CurrentPlayer(),
		Stacks:        [2]int64{players[0].Stack, players[1].Stack},
		Violations:    s.violations,
		EndReason:     s.endReason,
		Winner:        s.winner,
		CreatedAt:     s.createdAt,
		LastActive:    s.lastActive,
		ExpiresAt:     s.lastActive.Add(m.ttl()),
	}
}
