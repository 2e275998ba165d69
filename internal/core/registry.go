package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dkeye/QuickRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSession    = errors.New("unknown session")
	ErrAlreadyRegistered = errors.New("connection registered in another room")
)

// RosterEntry is one line of a room roster. Nickname is empty until the
// connection joins.
type RosterEntry struct {
	ID       ConnID `json:"id"`
	Nickname string `json:"nickname"`
}

// Member is a delivery target taken from a room snapshot.
type Member struct {
	ID     ConnID
	Signal SignalConnection
}

type RoomInfo struct {
	Code        domain.RoomCode `json:"code"`
	MemberCount int             `json:"member_count"`
}

type member struct {
	seq      uint64
	nickname string
	signal   SignalConnection
}

type room struct {
	mu      sync.RWMutex
	members map[ConnID]*member
}

// Registry maps room codes to the connections registered in them.
// Adding or removing a connection takes the registry lock; nickname updates
// and snapshots only take the lock of the room involved.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]*room
	conns map[ConnID]domain.RoomCode
	seq   uint64
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.RoomCode]*room),
		conns: make(map[ConnID]domain.RoomCode),
	}
}

// Register adds id to the room with no nickname, creating the room if needed.
// Registering the same id twice in the same room is a no-op.
func (r *Registry) Register(code domain.RoomCode, id ConnID, sig SignalConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.conns[id]; ok {
		if cur != code {
			return fmt.Errorf("%w: %s is in %s", ErrAlreadyRegistered, id, cur)
		}
		return nil
	}

	rm, ok := r.rooms[code]
	if !ok {
		rm = &room{members: make(map[ConnID]*member)}
		r.rooms[code] = rm
		log.Debug().Str("module", "core.registry").Str("room", string(code)).Msg("room created")
	}
	r.seq++
	rm.mu.Lock()
	rm.members[id] = &member{seq: r.seq, signal: sig}
	rm.mu.Unlock()
	r.conns[id] = code

	log.Info().Str("module", "core.registry").Str("room", string(code)).Str("sid", string(id)).Msg("member registered")
	return nil
}

// SetNickname overwrites the nickname of a registered connection.
func (r *Registry) SetNickname(code domain.RoomCode, id ConnID, nickname string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[code]
	if !ok {
		return fmt.Errorf("%w: %s not in %s", ErrUnknownSession, id, code)
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	m, ok := rm.members[id]
	if !ok {
		return fmt.Errorf("%w: %s not in %s", ErrUnknownSession, id, code)
	}
	m.nickname = nickname
	return nil
}

// Unregister removes id from the room and drops the room once it is empty.
// It reports whether an entry was removed; removing an absent entry is not an error.
func (r *Registry) Unregister(code domain.RoomCode, id ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return false
	}
	rm.mu.Lock()
	_, found := rm.members[id]
	delete(rm.members, id)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if !found {
		return false
	}
	delete(r.conns, id)
	if empty {
		delete(r.rooms, code)
		log.Debug().Str("module", "core.registry").Str("room", string(code)).Msg("room dropped")
	}
	log.Info().Str("module", "core.registry").Str("room", string(code)).Str("sid", string(id)).Msg("member unregistered")
	return true
}

// Roster returns the members of a room in registration order. An unknown
// room yields an empty roster.
func (r *Registry) Roster(code domain.RoomCode) []RosterEntry {
	members := r.snapshot(code)
	out := make([]RosterEntry, 0, len(members))
	for _, m := range members {
		out = append(out, RosterEntry{ID: m.id, Nickname: m.nickname})
	}
	return out
}

// Members returns the delivery targets of a room at call time.
func (r *Registry) Members(code domain.RoomCode) []Member {
	members := r.snapshot(code)
	out := make([]Member, 0, len(members))
	for _, m := range members {
		out = append(out, Member{ID: m.id, Signal: m.signal})
	}
	return out
}

// RoomOf reports the room a connection is registered in.
func (r *Registry) RoomOf(id ConnID) (domain.RoomCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.conns[id]
	return code, ok
}

func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for code, rm := range r.rooms {
		rm.mu.RLock()
		out = append(out, RoomInfo{Code: code, MemberCount: len(rm.members)})
		rm.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

type memberSnap struct {
	id       ConnID
	seq      uint64
	nickname string
	signal   SignalConnection
}

func (r *Registry) snapshot(code domain.RoomCode) []memberSnap {
	r.mu.RLock()
	rm, ok := r.rooms[code]
	if !ok {
		r.mu.RUnlock()
		return nil
	}
	rm.mu.RLock()
	out := make([]memberSnap, 0, len(rm.members))
	for id, m := range rm.members {
		out = append(out, memberSnap{id: id, seq: m.seq, nickname: m.nickname, signal: m.signal})
	}
	rm.mu.RUnlock()
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
