package marker

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"

	"github.com/ironsheep/cctag-identify/internal/center"
	"github.com/ironsheep/cctag-identify/internal/cuts"
	"github.com/ironsheep/cctag-identify/internal/ident"
	"github.com/ironsheep/cctag-identify/internal/rectify"
)

// Identifier runs the pipeline with fixed parameters and bank. It is
// read-only after construction and safe for concurrent use, provided the
// Observer is.
type Identifier struct {
	params      Params
	bank        *ident.Bank
	matcher     *ident.Matcher
	strategy    ident.Strategy
	refiner     center.Refiner
	startOffset int
	logger      *log.Logger
	observer    Observer
}

// Option configures an Identifier.
type Option func(*Identifier)

// WithLogger sends debug output to l. Output is discarded by default.
func WithLogger(l *log.Logger) Option {
	return func(id *Identifier) {
		if l != nil {
			id.logger = l
		}
	}
}

// WithObserver reports computed points to o.
func WithObserver(o Observer) Option {
	return func(id *Identifier) {
		if o != nil {
			id.observer = o
		}
	}
}

// NewIdentifier validates p and prepares the bank templates.
func NewIdentifier(p Params, bank *ident.Bank, opts ...Option) (*Identifier, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	offset, err := StartOffset(p.Crowns, p.SampleLength)
	if err != nil {
		return nil, err
	}
	matcher, err := ident.NewMatcher(bank, p.SampleLength, offset, p.IDSetSize)
	if err != nil {
		return nil, err
	}
	strategy, err := ident.ParseStrategy(p.Matching)
	if err != nil {
		return nil, err
	}
	solver, err := center.SolverFor(p.Solver)
	if err != nil {
		return nil, err
	}

	id := &Identifier{
		params:      p,
		bank:        bank,
		matcher:     matcher,
		strategy:    strategy,
		refiner:     center.Refiner{Solver: solver, SampleLength: p.SampleLength},
		startOffset: offset,
		logger:      log.New(io.Discard, "", 0),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(id)
	}
	return id, nil
}

// Params returns the parameters the Identifier was built with.
func (id *Identifier) Params() Params {
	return id.params
}

// StartOffset returns the number of leading cut samples ignored by matching.
func (id *Identifier) StartOffset() int {
	return id.startOffset
}

// Identify runs one pass over cand. rng drives the cut selection trials; a
// nil rng uses a fixed seed.
func (id *Identifier) Identify(frame Frame, cand *Candidate, rng *rand.Rand) (res Result) {
	res = Result{ID: -1}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	defer func() {
		if r := recover(); r != nil {
			id.logger.Printf("identify: recovered from %v", r)
			res = Result{Status: OptimizationDiverged, ID: -1}
		}
	}()

	p := id.params
	e := cand.Ellipse
	if e.Degenerate() {
		id.logger.Printf("identify: degenerate ellipse (a=%g, b=%g)", e.A, e.B)
		res.Status = NoCollectedCuts
		return res
	}
	boundary := subsample(cand.Boundary, p.MaxBoundaryPoints)

	id.observer.NewSession("identify")
	for _, pt := range boundary {
		id.observer.DrawPoint(pt, ColorBoundary)
	}

	collected := cuts.Collect(frame.Image, e.Center, boundary, p.SampleLength, id.startOffset)
	id.logger.Printf("identify: %d/%d cuts collected", len(collected), len(boundary))
	if len(collected) == 0 {
		res.Status = NoCollectedCuts
		return res
	}

	sel := cuts.SelectParams{
		Size:          p.Cuts,
		Alpha:         p.Alpha,
		RefineWindow:  p.RefineWindowFactor * e.B,
		RefineSamples: p.RefineSamples,
		Trials:        p.Trials,
	}
	selected, refined := cuts.Select(collected, frame.Image, frame.GradX, frame.GradY, sel, rng)
	id.logger.Printf("identify: %d cuts selected", len(selected))
	if len(selected) == 0 {
		res.Status = NoSelectedCuts
		return res
	}
	for _, pt := range refined {
		id.observer.DrawPoint(pt, ColorRefined)
	}

	c, err := id.refiner.Refine(frame.Image, e, cand.Center, refined)
	if err != nil {
		id.logger.Printf("identify: %v", err)
		res.Status = OptimizationDiverged
		return res
	}
	id.observer.DrawPoint(c, ColorCenter)

	h, signals, err := rectify.Sweep(frame.Image, e.Matrix(), c, refined, p.SampleLength)
	if err != nil {
		if !errors.Is(err, rectify.ErrCenterOutOfFrame) {
			id.logger.Printf("identify: final sweep: %v", err)
		}
		res.Status = OptimizationDiverged
		return res
	}
	cand.Center = c
	cand.Homography = h

	profiles := make([][]float64, len(signals))
	for i, s := range signals {
		profiles[i] = s.Signal
	}
	d, ok := id.matcher.Identify(id.strategy, profiles)
	if !ok {
		id.logger.Printf("identify: no informative signal")
		res.Status = NotReliable
		return res
	}

	cand.ID = d.ID
	cand.RadiusRatios = id.bank.Ratios(d.ID)
	cand.IDSet = d.IDSet
	res.ID = d.ID
	res.Score = d.Score
	res.Status = NotReliable
	if d.Score > p.MinIdentProba {
		res.Status = Reliable
	}
	id.logger.Printf("identify: id %d score %.4g votes %d (%s)", d.ID, d.Score, d.Votes, res.Status)
	return res
}
