package marker

import "fmt"

// Status is the outcome of identifying one candidate.
type Status int

// Status values. The zero Status means the candidate was not processed.
const (
	Reliable Status = iota + 1
	NotReliable
	NoCollectedCuts
	NoSelectedCuts
	OptimizationDiverged
)

var statusNames = map[Status]string{
	Reliable:             "reliable",
	NotReliable:          "not_reliable",
	NoCollectedCuts:      "no_collected_cuts",
	NoSelectedCuts:       "no_selected_cuts",
	OptimizationDiverged: "optimization_diverged",
}

// String returns the snake_case name of s.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for v, name := range statusNames {
		if name == string(text) {
			*s = v
			return nil
		}
	}
	if string(text) == "unknown" {
		*s = 0
		return nil
	}
	return fmt.Errorf("unknown status %q", text)
}

// Result is what Identify reports for a candidate.
type Result struct {
	Status Status  `json:"status"`
	ID     int     `json:"id"`
	Score  float64 `json:"score"`
}
