package translate

// State is the phase of the driver for the current window.
type State int

// Driver states. A window moves Idle → Requesting → Validating and ends in
// Committed or Rejected before the driver returns to Idle.
const (
	StateIdle State = iota
	StateRequesting
	StateValidating
	StateCommitted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateValidating:
		return "validating"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
