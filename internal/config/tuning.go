// Package config loads identification tuning from JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/cctag-identify/internal/marker"
)

// DefaultBlurSigma is the gradient pre-blur used when a tuning file does not
// set one.
const DefaultBlurSigma = 1.0

// TuningConfig is the JSON form of the pipeline parameters. Every field is
// optional; absent fields keep the value of marker.DefaultParams.
type TuningConfig struct {
	// Marker family
	Crowns *int `json:"crowns,omitempty"`

	// Cut collection and selection
	SampleLength       *int     `json:"sample_length,omitempty"`
	Cuts               *int     `json:"cuts,omitempty"`
	Trials             *int     `json:"trials,omitempty"`
	Alpha              *float64 `json:"alpha,omitempty"`
	RefineSamples      *int     `json:"refine_samples,omitempty"`
	RefineWindowFactor *float64 `json:"refine_window_factor,omitempty"`
	MaxBoundaryPoints  *int     `json:"max_boundary_points,omitempty"`

	// Center refinement
	Solver *string `json:"solver,omitempty"` // "bfgs" or "nelder-mead"

	// Matching
	Matching      *string  `json:"matching,omitempty"` // "robust" or "pooled"
	MinIdentProba *float64 `json:"min_ident_proba,omitempty"`
	IDSetSize     *int     `json:"id_set_size,omitempty"`

	// Image views
	BlurSigma *float64 `json:"blur_sigma,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseTuningConfig(data)
}

// ParseTuningConfig parses and validates JSON tuning data.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the merged parameters.
func (c *TuningConfig) Validate() error {
	if c.BlurSigma != nil && *c.BlurSigma < 0 {
		return fmt.Errorf("blur_sigma must not be negative, got %v", *c.BlurSigma)
	}
	return c.Params().Validate()
}

// Params overlays the configured fields on marker.DefaultParams.
// A nil config yields the defaults.
func (c *TuningConfig) Params() marker.Params {
	p := marker.DefaultParams()
	if c == nil {
		return p
	}
	setInt(&p.Crowns, c.Crowns)
	setInt(&p.SampleLength, c.SampleLength)
	setInt(&p.Cuts, c.Cuts)
	setInt(&p.Trials, c.Trials)
	setFloat(&p.Alpha, c.Alpha)
	setInt(&p.RefineSamples, c.RefineSamples)
	setFloat(&p.RefineWindowFactor, c.RefineWindowFactor)
	setInt(&p.MaxBoundaryPoints, c.MaxBoundaryPoints)
	setString(&p.Solver, c.Solver)
	setString(&p.Matching, c.Matching)
	setFloat(&p.MinIdentProba, c.MinIdentProba)
	setInt(&p.IDSetSize, c.IDSetSize)
	return p
}

// GetBlurSigma returns the gradient pre-blur.
func (c *TuningConfig) GetBlurSigma() float64 {
	if c == nil || c.BlurSigma == nil {
		return DefaultBlurSigma
	}
	return *c.BlurSigma
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
