package fetch

// State tracks a fetch through its lifecycle. Ready and Failed are terminal.
type State int

// Fetch lifecycle states.
const (
	StateUnfetched State = iota
	StateCached
	StateDownloading
	StateExtracting
	StateDecoding
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnfetched:
		return "unfetched"
	case StateCached:
		return "cached"
	case StateDownloading:
		return "downloading"
	case StateExtracting:
		return "extracting"
	case StateDecoding:
		return "decoding"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
