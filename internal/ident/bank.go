// Package ident matches rectified ring profiles against a bank of known
// radius-ratio signatures.
//
// A signature lists the ratios at which the ring pattern of a marker family
// member changes from dark to light. Templates derived from the signatures
// are compared with observed signals using a robust, median-split distance,
// and per-cut matches are aggregated by voting (Robust) or by pooling the
// signals first (Pooled).
package ident

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrEmptyBank is returned when a bank holds no signature.
	ErrEmptyBank = errors.New("radius ratio bank is empty")

	// ErrInvalidRatio is returned for a ratio that is not a finite positive
	// number.
	ErrInvalidRatio = errors.New("invalid radius ratio")
)

// Bank is an ordered, read-only collection of marker signatures. The index
// of a signature is its marker ID.
type Bank struct {
	signatures [][]float64
}

// NewBank validates and copies the given signatures.
func NewBank(signatures [][]float64) (*Bank, error) {
	if len(signatures) == 0 {
		return nil, ErrEmptyBank
	}
	b := &Bank{signatures: make([][]float64, len(signatures))}
	for id, sig := range signatures {
		if len(sig) == 0 {
			return nil, fmt.Errorf("signature %d: %w: no ratios", id, ErrInvalidRatio)
		}
		for j, r := range sig {
			if !(r > 0) || math.IsInf(r, 0) {
				return nil, fmt.Errorf("signature %d ratio %d: %w: %v", id, j, ErrInvalidRatio, r)
			}
		}
		b.signatures[id] = append([]float64(nil), sig...)
	}
	return b, nil
}

// LoadBank reads one signature per line. Ratios are separated by whitespace
// or commas; blank lines and lines starting with '#' are ignored.
func LoadBank(r io.Reader) (*Bank, error) {
	var signatures [][]float64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t'
		})
		sig := make([]float64, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w: %q", line, ErrInvalidRatio, f)
			}
			sig = append(sig, v)
		}
		signatures = append(signatures, sig)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	return NewBank(signatures)
}

// Len returns the number of signatures.
func (b *Bank) Len() int {
	return len(b.signatures)
}

// Ratios returns a copy of the ratios of signature id, or nil when id is out
// of range.
func (b *Bank) Ratios(id int) []float64 {
	if id < 0 || id >= len(b.signatures) {
		return nil
	}
	return append([]float64(nil), b.signatures[id]...)
}
