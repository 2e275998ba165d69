package app

import (
	"fmt"

	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/dkeye/QuickRoom/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what to do with a member whose outbound queue rejected a frame.
type Policy interface {
	OnBackPressure(room domain.RoomCode, member core.Member) BackpressureAction
}

// DropPolicy loses the frame for that member only.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.RoomCode, core.Member) BackpressureAction {
	return DropFrame
}

// KickPolicy closes the slow member's connection; its disconnect path then
// runs like any other.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.RoomCode, core.Member) BackpressureAction {
	return KickMember
}

func PolicyFromName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
