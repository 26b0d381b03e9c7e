package marker

import (
	"errors"
	"fmt"

	"github.com/ironsheep/cctag-identify/internal/center"
	"github.com/ironsheep/cctag-identify/internal/ident"
)

// ErrUnsupportedCrowns is returned for a crown count with no known start
// offset.
var ErrUnsupportedCrowns = errors.New("unsupported crown count")

// Params tunes the identification pipeline.
type Params struct {
	Crowns             int     `json:"crowns"`               // rings of the marker family (3 or 4)
	Cuts               int     `json:"cuts"`                 // cuts kept by selection
	RefineSamples      int     `json:"refine_samples"`       // samples along an endpoint refinement segment
	Trials             int     `json:"trials"`               // random subsets tried by selection
	SampleLength       int     `json:"sample_length"`        // samples per cut
	MinIdentProba      float64 `json:"min_ident_proba"`      // score a reliable decision must exceed
	Alpha              float64 `json:"alpha"`                // variance weight in the selection cost
	Solver             string  `json:"solver"`               // center solver, see center.SolverFor
	IDSetSize          int     `json:"id_set_size"`          // candidates kept in the id-set
	Matching           string  `json:"matching"`             // robust or pooled
	RefineWindowFactor float64 `json:"refine_window_factor"` // refinement width relative to the minor semi-axis
	MaxBoundaryPoints  int     `json:"max_boundary_points"`  // boundary points kept after subsampling
}

// DefaultParams returns the tuning used for 3-crown markers.
func DefaultParams() Params {
	return Params{
		Crowns:             3,
		Cuts:               22,
		RefineSamples:      20,
		Trials:             500,
		SampleLength:       100,
		MinIdentProba:      1e-6,
		Alpha:              0.1,
		Solver:             center.SolverBFGS,
		IDSetSize:          6,
		Matching:           string(ident.StrategyRobust),
		RefineWindowFactor: 0.12,
		MaxBoundaryPoints:  100,
	}
}

// StartOffset returns the number of leading samples of a cut of length
// samples that the matcher ignores, for markers of the given crown count.
//
// Three crowns skip everything but the outer (2·3-1)·15 % of the cut; four
// crowns use a fixed offset of 26. The three-crown offset is truncated, not
// rounded.
func StartOffset(crowns, length int) (int, error) {
	var offset int
	switch crowns {
	case 3:
		offset = int(float64(length) - float64(2*crowns-1)*0.15*float64(length))
	case 4:
		offset = 26
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedCrowns, crowns)
	}
	if offset < 0 || offset >= length {
		return 0, fmt.Errorf("start offset %d outside cut of length %d", offset, length)
	}
	return offset, nil
}

// Validate reports the first inconsistent setting.
func (p Params) Validate() error {
	if _, err := StartOffset(p.Crowns, p.SampleLength); err != nil {
		return err
	}
	switch {
	case p.Cuts <= 0:
		return fmt.Errorf("cuts must be positive, got %d", p.Cuts)
	case p.RefineSamples < 3:
		return fmt.Errorf("refine samples must be at least 3, got %d", p.RefineSamples)
	case p.Trials < 0:
		return fmt.Errorf("trials must not be negative, got %d", p.Trials)
	case p.MinIdentProba < 0 || p.MinIdentProba >= 1:
		return fmt.Errorf("min ident proba must be in [0, 1), got %v", p.MinIdentProba)
	case p.IDSetSize <= 0:
		return fmt.Errorf("id set size must be positive, got %d", p.IDSetSize)
	case p.RefineWindowFactor <= 0:
		return fmt.Errorf("refine window factor must be positive, got %v", p.RefineWindowFactor)
	case p.MaxBoundaryPoints < 2:
		return fmt.Errorf("max boundary points must be at least 2, got %d", p.MaxBoundaryPoints)
	}
	if _, err := center.SolverFor(p.Solver); err != nil {
		return err
	}
	if _, err := ident.ParseStrategy(p.Matching); err != nil {
		return err
	}
	return nil
}
