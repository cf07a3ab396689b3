package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"testwise_attempt/internal/config"
	"testwise_attempt/internal/model"
	"testwise_attempt/pkg/monitoring"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type RegistryDeps struct {
	// GatewayFor builds a gateway that authenticates with the given token source.
	GatewayFor  func(token func() string) AssessmentGateway
	Cache       RecoveryCache
	Entitlement EntitlementChecker
	Navigator   Navigator
	Events      EventPublisher
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

type sessionKey struct {
	userID uint
	testID uint
}

type registeredSession struct {
	session *AttemptSession
	token   atomic.Value
}

// SessionRegistry owns one AttemptSession per (student, test).
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[sessionKey]*registeredSession
	cfg      SessionConfig
	deps     RegistryDeps
}

func SessionConfigFromEngine(e config.EngineConfig) SessionConfig {
	return SessionConfig{
		TickInterval:      e.TickInterval,
		RedirectAfter:     e.RedirectAfter(),
		MaxSubmitAttempts: e.MaxSubmitAttempts,
		RetryBackoff:      e.RetryBackoff,
		SkewTolerance:     e.SkewTolerance,
	}
}

func NewSessionRegistry(cfg SessionConfig, deps RegistryDeps) *SessionRegistry {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &SessionRegistry{
		sessions: make(map[sessionKey]*registeredSession),
		cfg:      cfg,
		deps:     deps,
	}
}

// Get returns the caller's session for testID, creating it on first use.
// The bearer token used towards the Assessment Service is refreshed from p.
// The session is marked active before the registry lock is released, so a
// concurrent Sweep cannot evict it out from under the caller.
func (r *SessionRegistry) Get(p model.Principal, testID uint) *AttemptSession {
	key := sessionKey{userID: p.UserID, testID: testID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rs, ok := r.sessions[key]; ok {
		if p.Token != "" {
			rs.token.Store(p.Token)
		}
		rs.session.Touch()
		return rs.session
	}

	rs := &registeredSession{}
	rs.token.Store(p.Token)
	token := func() string {
		t, _ := rs.token.Load().(string)
		return t
	}
	rs.session = NewAttemptSession(p, testID, r.cfg, SessionDeps{
		Gateway:     r.deps.GatewayFor(token),
		Cache:       r.deps.Cache,
		Entitlement: r.deps.Entitlement,
		Navigator:   r.deps.Navigator,
		Events:      r.deps.Events,
		Clock:       r.deps.Clock,
		Logger:      r.deps.Logger.Named("session"),
	})
	r.sessions[key] = rs
	monitoring.ActiveSessions.Inc()
	return rs.session
}

func (r *SessionRegistry) Lookup(userID, testID uint) (*AttemptSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.sessions[sessionKey{userID: userID, testID: testID}]
	if !ok {
		return nil, false
	}
	return rs.session, true
}

// Evict closes and forgets a session.
func (r *SessionRegistry) Evict(userID, testID uint) {
	key := sessionKey{userID: userID, testID: testID}
	r.mu.Lock()
	rs, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
		monitoring.ActiveSessions.Dec()
	}
	r.mu.Unlock()

	if ok {
		rs.session.Close()
	}
}

// Sweep evicts sessions idle for longer than ttl. Sessions with an attempt
// running or being submitted are kept so their timers still fire.
func (r *SessionRegistry) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := r.deps.Clock.Now().Add(-ttl)

	r.mu.Lock()
	var stale []*AttemptSession
	for key, rs := range r.sessions {
		if rs.session.State().Busy() || rs.session.LastActive().After(cutoff) {
			continue
		}
		stale = append(stale, rs.session)
		delete(r.sessions, key)
		monitoring.ActiveSessions.Dec()
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		r.deps.Logger.Info("evicted idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	all := make([]*AttemptSession, 0, len(r.sessions))
	for key, rs := range r.sessions {
		all = append(all, rs.session)
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	monitoring.ActiveSessions.Set(0)
}

// UpdateEngine applies new engine settings to sessions created from now on.
func (r *SessionRegistry) UpdateEngine(cfg SessionConfig) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	r.deps.Logger.Info("engine config reloaded", zap.String("config", fmt.Sprintf("%+v", cfg)))
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
