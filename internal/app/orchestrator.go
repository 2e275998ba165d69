package app

import (
	"fmt"

	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/dkeye/QuickRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator owns the registry and hands out sessions bound to it.
type Orchestrator struct {
	Registry    *core.Registry
	Broadcaster *Broadcaster
}

func NewOrchestrator(registry *core.Registry, policy Policy) *Orchestrator {
	return &Orchestrator{
		Registry:    registry,
		Broadcaster: NewBroadcaster(registry, policy),
	}
}

// Connect registers a fresh connection in room and returns its session in
// the Connected state. The connection is in the roster with no nickname
// until it joins.
func (o *Orchestrator) Connect(room domain.RoomCode, id core.ConnID, sig core.SignalConnection) (*Session, error) {
	if err := o.Registry.Register(room, id, sig); err != nil {
		return nil, fmt.Errorf("connect %s: %w", id, err)
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(room)).Str("sid", string(id)).Msg("connected")
	return &Session{
		id:          id,
		room:        room,
		registry:    o.Registry,
		broadcaster: o.Broadcaster,
		state:       StateConnected,
	}, nil
}

func (o *Orchestrator) Rooms() []core.RoomInfo { return o.Registry.Rooms() }

func (o *Orchestrator) Roster(room domain.RoomCode) []core.RosterEntry {
	return o.Registry.Roster(room)
}
