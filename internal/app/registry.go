package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrAlreadyJoined  = errors.New("session already joined")
	ErrNameTaken      = errors.New("display name taken")
)

type sessionEntry struct {
	Conn   core.SignalConnection
	Name   domain.DisplayName
	Joined bool
}

// Peer is a connection snapshot used for fan-out.
type Peer struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

// Registry is the single source of truth for live connections and the
// display names bound to them. Both directions live behind one mutex so no
// reader ever sees a half-applied join or leave.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	byName   map[domain.DisplayName][]core.SessionID
	joined   []core.SessionID
	policy   NamePolicy
}

func NewRegistry(policy NamePolicy) *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		byName:   make(map[domain.DisplayName][]core.SessionID),
		policy:   policy,
	}
}

// Bind records a freshly connected session that has not joined yet.
func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Conn: conn}
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

// Unbind forgets the session entirely, including any name binding.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(sid)
	delete(r.sessions, sid)
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// Register binds name to sid and returns the name actually bound, which
// differs from the requested one only under PolicySuffix.
func (r *Registry) Register(sid core.SessionID, name domain.DisplayName) (domain.DisplayName, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(sid, name)
}

// Unregister drops the name binding of sid. It reports false when the
// session never joined, so callers announce a departure at most once.
func (r *Registry) Unregister(sid core.SessionID) (domain.DisplayName, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(sid)
}

// LookupByName returns the earliest joined session still holding name.
func (r *Registry) LookupByName(name domain.DisplayName) (core.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(name)
}

// AllNames is a snapshot of every bound name in join order. Duplicates are
// reported once per holder.
func (r *Registry) AllNames() []domain.DisplayName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) NameOf(sid core.SessionID) (domain.DisplayName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || !e.Joined {
		return "", false
	}
	return e.Name, true
}

// Count is the number of connected sessions, joined or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// OnlineCount is the number of sessions that joined.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.joined)
}

// JoinResult is everything the presence broadcaster needs after a join,
// captured under the same lock as the registration itself.
type JoinResult struct {
	Name   domain.DisplayName
	Self   core.SignalConnection
	Others []Peer
	Names  []domain.DisplayName
}

// Join registers name for sid and snapshots the online list and the other
// connections atomically. fn, when set, runs before the lock is released so
// every outbox sees membership events in registry order. fn must not block
// and must not call back into the registry.
func (r *Registry) Join(sid core.SessionID, name domain.DisplayName, fn func(JoinResult)) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bound, err := r.registerLocked(sid, name)
	if err != nil {
		return JoinResult{}, err
	}
	res := JoinResult{
		Name:   bound,
		Self:   r.sessions[sid].Conn,
		Others: r.peersLocked(sid),
		Names:  r.namesLocked(),
	}
	if fn != nil {
		fn(res)
	}
	return res, nil
}

type LeaveResult struct {
	Name      domain.DisplayName
	Joined    bool
	Remaining []Peer
}

// Leave unregisters and unbinds sid in one step. Joined is false when the
// session never joined or was already gone. fn follows the same rules as in
// Join.
func (r *Registry) Leave(sid core.SessionID, fn func(LeaveResult)) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, joined := r.unregisterLocked(sid)
	delete(r.sessions, sid)
	res := LeaveResult{Name: name, Joined: joined}
	if joined {
		res.Remaining = r.peersLocked(sid)
	}
	if fn != nil {
		fn(res)
	}
	return res
}

// Resolution is the outcome of resolving a sender session and a recipient
// name for one routing call.
type Resolution struct {
	Sender       domain.DisplayName
	SenderOK     bool
	RecipientSID core.SessionID
	Recipient    core.SignalConnection
	RecipientOK  bool
}

// Resolve looks up both ends of a message. fn runs under the read lock, so a
// delivery cannot interleave with a join or leave.
func (r *Registry) Resolve(sid core.SessionID, to domain.DisplayName, fn func(Resolution)) Resolution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res Resolution
	if e, ok := r.sessions[sid]; ok && e.Joined {
		res.Sender, res.SenderOK = e.Name, true
	}
	if rsid, ok := r.lookupLocked(to); ok {
		res.RecipientSID = rsid
		res.Recipient = r.sessions[rsid].Conn
		res.RecipientOK = true
	}
	if fn != nil {
		fn(res)
	}
	return res
}

func (r *Registry) registerLocked(sid core.SessionID, name domain.DisplayName) (domain.DisplayName, error) {
	e, ok := r.sessions[sid]
	if !ok {
		return "", ErrUnknownSession
	}
	if e.Joined {
		return "", ErrAlreadyJoined
	}
	if len(r.byName[name]) > 0 {
		switch r.policy {
		case PolicyReject:
			return "", fmt.Errorf("%w: %s", ErrNameTaken, name)
		case PolicySuffix:
			name = r.freeNameLocked(name)
		}
	}
	e.Name = name
	e.Joined = true
	r.byName[name] = append(r.byName[name], sid)
	r.joined = append(r.joined, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("name", string(name)).Msg("registered name")
	return name, nil
}

func (r *Registry) unregisterLocked(sid core.SessionID) (domain.DisplayName, bool) {
	e, ok := r.sessions[sid]
	if !ok || !e.Joined {
		return "", false
	}
	name := e.Name
	holders := lo.Without(r.byName[name], sid)
	if len(holders) == 0 {
		delete(r.byName, name)
	} else {
		r.byName[name] = holders
	}
	r.joined = lo.Without(r.joined, sid)
	e.Joined = false
	e.Name = ""
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("name", string(name)).Msg("unregistered name")
	return name, true
}

func (r *Registry) lookupLocked(name domain.DisplayName) (core.SessionID, bool) {
	holders := r.byName[name]
	if len(holders) == 0 {
		return "", false
	}
	return holders[0], true
}

func (r *Registry) namesLocked() []domain.DisplayName {
	return lo.Map(r.joined, func(sid core.SessionID, _ int) domain.DisplayName {
		return r.sessions[sid].Name
	})
}

func (r *Registry) peersLocked(except core.SessionID) []Peer {
	out := make([]Peer, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if sid == except {
			continue
		}
		out = append(out, Peer{SID: sid, Conn: e.Conn})
	}
	return out
}

// freeNameLocked returns the first unused "name#N". The base is cut so the
// result still fits MaxDisplayNameLen and stays addressable.
func (r *Registry) freeNameLocked(name domain.DisplayName) domain.DisplayName {
	base := []rune(string(name))
	for i := 2; ; i++ {
		suffix := fmt.Sprintf("#%d", i)
		keep := min(len(base), domain.MaxDisplayNameLen-utf8.RuneCountInString(suffix))
		candidate := domain.DisplayName(strings.TrimSpace(string(base[:keep])) + suffix)
		if len(r.byName[candidate]) == 0 {
			return candidate
		}
	}
}
