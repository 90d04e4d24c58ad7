// Package netmon tracks whether a well-known host is reachable.
package netmon

import "strings"

// Flags describe how a host can be reached. Bit values follow the platform
// reachability flags so raw values from OS callbacks can be passed through.
type Flags uint32

const (
	TransientConnection  Flags = 1 << 0
	Reachable            Flags = 1 << 1
	ConnectionRequired   Flags = 1 << 2
	ConnectionOnTraffic  Flags = 1 << 3
	InterventionRequired Flags = 1 << 4
	ConnectionOnDemand   Flags = 1 << 5
	IsLocalAddress       Flags = 1 << 16
	IsDirect             Flags = 1 << 17
	IsWWAN               Flags = 1 << 18
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{TransientConnection, "transient"},
	{Reachable, "reachable"},
	{ConnectionRequired, "connection-required"},
	{ConnectionOnTraffic, "on-traffic"},
	{InterventionRequired, "intervention-required"},
	{ConnectionOnDemand, "on-demand"},
	{IsLocalAddress, "local"},
	{IsDirect, "direct"},
	{IsWWAN, "wwan"},
}

// Has reports whether every bit of other is set in f.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// Status is the collapsed reachability classification.
type Status int

const (
	Unreachable Status = iota
	ReachableWired
	ReachableCellular
)

func (s Status) String() string {
	switch s {
	case ReachableWired:
		return "reachable-wired"
	case ReachableCellular:
		return "reachable-cellular"
	default:
		return "unreachable"
	}
}

// Connected reports whether s is any reachable status.
func (s Status) Connected() bool {
	return s != Unreachable
}

// Classify maps reachability flags to a Status.
func Classify(f Flags) Status {
	if !f.Has(Reachable) {
		return Unreachable
	}
	if !f.Has(ConnectionRequired) {
		return ReachableWired
	}
	if (f.Has(ConnectionOnDemand) || f.Has(ConnectionOnTraffic)) && !f.Has(InterventionRequired) {
		return ReachableWired
	}
	if f.Has(IsWWAN) {
		return ReachableCellular
	}
	return Unreachable
}
