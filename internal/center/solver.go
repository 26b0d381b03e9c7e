// Package center refines the imaged center of a marker so that the rectified
// cuts around it agree with each other.
package center

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Solver names accepted by SolverFor.
const (
	SolverBFGS       = "bfgs"
	SolverNelderMead = "nelder-mead"
)

// DefaultTolerance is the absolute function-value change below which the
// solvers consider the residual converged.
const DefaultTolerance = 1e-4

// ErrUnknownSolver is returned by SolverFor for unrecognized names.
var ErrUnknownSolver = errors.New("unknown solver")

// Solver minimizes a scalar function of a few variables starting from x0.
// It returns its best point; callers judge the result themselves.
type Solver interface {
	Minimize(x0 []float64, f func(x []float64) float64) ([]float64, error)
}

// SolverFor returns the solver registered under name.
func SolverFor(name string) (Solver, error) {
	switch name {
	case "", SolverBFGS:
		return BFGS{}, nil
	case SolverNelderMead:
		return NelderMead{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSolver, name)
}

// BFGS is a quasi-Newton solver with a line search. Gradients are estimated
// by central finite differences.
type BFGS struct {
	Tolerance     float64 // default DefaultTolerance
	MaxIterations int     // 0 means no limit
}

// Minimize implements Solver.
func (s BFGS) Minimize(x0 []float64, f func(x []float64) float64) ([]float64, error) {
	p := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
		},
	}
	return minimize(p, x0, s.Tolerance, s.MaxIterations, &optimize.BFGS{})
}

// NelderMead is a derivative-free simplex solver.
type NelderMead struct {
	Tolerance     float64 // default DefaultTolerance
	MaxIterations int     // 0 means no limit
}

// Minimize implements Solver.
func (s NelderMead) Minimize(x0 []float64, f func(x []float64) float64) ([]float64, error) {
	return minimize(optimize.Problem{Func: f}, x0, s.Tolerance, s.MaxIterations, &optimize.NelderMead{})
}

func minimize(p optimize.Problem, x0 []float64, tol float64, maxIter int, method optimize.Method) ([]float64, error) {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	settings := &optimize.Settings{
		Converger:       &optimize.FunctionConverge{Absolute: tol, Iterations: 3},
		MajorIterations: maxIter,
	}
	res, err := optimize.Minimize(p, x0, settings, method)
	if res == nil {
		return nil, fmt.Errorf("minimize: %w", err)
	}
	// Linesearch and iteration-limit failures still carry the best location.
	for _, v := range res.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("minimize: non-finite result (status %v)", res.Status)
		}
	}
	return res.X, nil
}
