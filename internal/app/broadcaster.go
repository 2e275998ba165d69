package app

import (
	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/dkeye/QuickRoom/internal/domain"
	"github.com/dkeye/QuickRoom/internal/metrics"
	"github.com/dkeye/QuickRoom/internal/protocol"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats/backpressure of one broadcast.
type PublishResult struct {
	SentTo  int
	Dropped []core.Member
}

// Broadcaster delivers an event to every member of a room. Delivery is best
// effort: sends never block and a failed recipient does not stop the loop.
type Broadcaster struct {
	registry *core.Registry
	policy   Policy
}

func NewBroadcaster(registry *core.Registry, policy Policy) *Broadcaster {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Broadcaster{registry: registry, policy: policy}
}

func (b *Broadcaster) Broadcast(room domain.RoomCode, ev protocol.Outbound) PublishResult {
	kind := string(ev.Type())
	frame, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcast").Str("room", string(room)).Str("type", kind).Msg("encode failed")
		return PublishResult{}
	}

	res := PublishResult{}
	for _, m := range b.registry.Members(room) {
		if err := m.Signal.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.broadcast").Str("room", string(room)).Str("sid", string(m.ID)).Str("type", kind).Msg("frame dropped")
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SentTo++
	}
	metrics.FramesSent.WithLabelValues(kind).Add(float64(res.SentTo))
	if len(res.Dropped) > 0 {
		metrics.FramesDropped.WithLabelValues(kind).Add(float64(len(res.Dropped)))
		b.applyPolicy(room, res.Dropped)
	}

	log.Debug().Str("module", "app.broadcast").Str("room", string(room)).Str("type", kind).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (b *Broadcaster) applyPolicy(room domain.RoomCode, dropped []core.Member) {
	for _, slow := range dropped {
		switch b.policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Info().Str("module", "app.broadcast").Str("room", string(room)).Str("sid", string(slow.ID)).Msg("kicking slow member")
			go slow.Signal.Close()
		case DropFrame, NoAction:
		}
	}
}
