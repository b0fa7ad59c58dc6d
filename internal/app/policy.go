package app

import (
	"fmt"
	"strings"

	"github.com/dkeye/Relay/internal/core"
)

// NamePolicy decides what happens when a join claims a name that is already
// bound to another live connection.
type NamePolicy int

const (
	// PolicyAllow lets both connections hold the name; routing picks the
	// earliest joined holder.
	PolicyAllow NamePolicy = iota
	// PolicyReject fails the join with ErrNameTaken.
	PolicyReject
	// PolicySuffix binds the first free "name#N" instead.
	PolicySuffix
)

func (p NamePolicy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicySuffix:
		return "suffix"
	default:
		return "allow"
	}
}

func ParseNamePolicy(s string) (NamePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return PolicyAllow, nil
	case "reject":
		return PolicyReject, nil
	case "suffix":
		return PolicySuffix, nil
	}
	return PolicyAllow, fmt.Errorf("unknown name policy %q", s)
}

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what to do with a connection whose outbox is full.
type Policy interface {
	OnBackPressure(sid core.SessionID, conn core.SignalConnection) BackpressureAction
}

// SimplePolicy drops the frame and keeps the connection: delivery is best
// effort and a slow reader only loses events.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.SessionID, core.SignalConnection) BackpressureAction {
	return DropFrame
}

// StrictPolicy closes connections that cannot keep up. The read loop then
// observes the closed socket and runs the normal disconnect path.
type StrictPolicy struct{}

func (StrictPolicy) OnBackPressure(core.SessionID, core.SignalConnection) BackpressureAction {
	return KickMember
}

// ParsePolicy maps "drop" to SimplePolicy and "kick" to StrictPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return SimplePolicy{}, nil
	case "kick":
		return StrictPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", s)
}
