package scanner

import "time"

// State is the phase of the range currently processed by a scanner.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateValidating State = "validating"
	StateReorg      State = "reorg"
	StateApplying   State = "applying"
	StateHalted     State = "halted"
)

var allStates = []string{
	string(StateIdle),
	string(StateFetching),
	string(StateValidating),
	string(StateReorg),
	string(StateApplying),
	string(StateHalted),
}

// Status is a snapshot of a chain's scanner.
type Status struct {
	ChainID    uint64    `json:"chain_id"`
	Chain      string    `json:"chain"`
	State      State     `json:"state"`
	Checkpoint uint64    `json:"checkpoint"`
	Head       uint64    `json:"head"`
	BatchSize  uint64    `json:"batch_size"`
	Halted     bool      `json:"halted"`
	Fatal      bool      `json:"fatal"`
	HaltReason string    `json:"halt_reason,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
