package live

// BroadcastState is the normalized live-broadcast signal for one item.
type BroadcastState int

const (
	// BroadcastUnknown covers missing, ambiguous and failed probes.
	BroadcastUnknown BroadcastState = iota
	// BroadcastNone means the item is a plain upload.
	BroadcastNone
	// BroadcastUpcoming means a scheduled broadcast that has not started.
	BroadcastUpcoming
	// BroadcastLive means an authoritative started-and-not-ended marker.
	BroadcastLive
	// BroadcastEnded means an authoritative ended/offline marker.
	BroadcastEnded
)

func (s BroadcastState) String() string {
	switch s {
	case BroadcastNone:
		return "none"
	case BroadcastUpcoming:
		return "upcoming"
	case BroadcastLive:
		return "live"
	case BroadcastEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Signal carries whatever raw evidence a probe produced.
// Viewers is -1 when the probe had no metric.
type Signal struct {
	Broadcast BroadcastState
	Viewers   int64
}

// Status is the per-cycle resolution of a Signal.
type Status struct {
	LiveNow bool
	Viewers int64
}

// Classify collapses a Signal into "is broadcasting right now".
//
// The policy is asymmetric on purpose: a false negative only delays the live
// notification by one cycle, a false positive produces a wrong highlight.
// So only an authoritative started-and-not-ended marker yields true;
// ended, upcoming, plain uploads and anything unknown all yield false.
func Classify(sig Signal) Status {
	return Status{
		LiveNow: sig.Broadcast == BroadcastLive,
		Viewers: sig.Viewers,
	}
}
