package capture

// State of a Session
type State int

const (
	Idle State = iota
	Recording
	Paused
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Active reports whether a capture loop is running
func (s State) Active() bool {
	return s == Recording || s == Paused || s == Stopping
}
