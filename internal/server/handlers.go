package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/ironsheep/cctag-identify/internal/config"
	"github.com/ironsheep/cctag-identify/internal/geometry"
	"github.com/ironsheep/cctag-identify/internal/ident"
	"github.com/ironsheep/cctag-identify/internal/imaging"
	"github.com/ironsheep/cctag-identify/internal/marker"
)

// defaultBoundaryCount is the number of points sampled on the ellipse when a
// request carries no boundary points.
const defaultBoundaryCount = 100

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "marker_identify", "bank_info").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "marker_identify":
		return s.handleMarkerIdentify(args)
	case "marker_identify_batch":
		return s.handleMarkerIdentifyBatch(args)
	case "marker_template":
		return s.handleMarkerTemplate(args)
	case "bank_info":
		return s.handleBankInfo(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Shared argument handling ===

type bankArgs struct {
	BankPath string      `json:"bank_path"`
	Bank     [][]float64 `json:"bank"`
}

type ellipseArgs struct {
	Center geometry.Point2D `json:"center"`
	A      float64          `json:"a"`
	B      float64          `json:"b"`
	Angle  float64          `json:"angle"`
}

type candidateArgs struct {
	Ellipse       *ellipseArgs       `json:"ellipse"`
	Boundary      []geometry.Point2D `json:"boundary"`
	BoundaryCount int                `json:"boundary_count"`
	Center        *geometry.Point2D  `json:"center"`
}

type tuningArgs struct {
	Path       string `json:"path"`
	TuningPath string `json:"tuning_path"`
	Seed       *int64 `json:"seed"`
	Evict      bool   `json:"evict"`
}

func (a tuningArgs) seed() int64 {
	if a.Seed == nil {
		return 1
	}
	return *a.Seed
}

// loadBank resolves the bank of a request. Banks read from files are cached
// by path.
func (s *Server) loadBank(a bankArgs) (*ident.Bank, error) {
	if len(a.Bank) > 0 {
		return ident.NewBank(a.Bank)
	}
	if a.BankPath == "" {
		return nil, fmt.Errorf("bank or bank_path is required")
	}

	path := filepath.Clean(a.BankPath)
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.banks[path]; ok {
		return b, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bank: %w", err)
	}
	defer f.Close()

	b, err := ident.LoadBank(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank %s: %w", path, err)
	}
	s.banks[path] = b
	return b, nil
}

// candidate builds the marker hypothesis of a request.
func (a candidateArgs) candidate() (*marker.Candidate, error) {
	if a.Ellipse == nil {
		return nil, fmt.Errorf("ellipse is required")
	}
	e, err := geometry.NewEllipse(a.Ellipse.Center, a.Ellipse.A, a.Ellipse.B, a.Ellipse.Angle)
	if err != nil {
		return nil, err
	}

	boundary := a.Boundary
	if len(boundary) == 0 {
		n := a.BoundaryCount
		if n <= 0 {
			n = defaultBoundaryCount
		}
		boundary = make([]geometry.Point2D, n)
		for i := range boundary {
			boundary[i] = e.PointAt(2 * math.Pi * float64(i) / float64(n))
		}
	}

	c := marker.NewCandidate(e, boundary)
	if a.Center != nil {
		c.Center = *a.Center
	}
	return c, nil
}

// prepare loads everything an identification request needs.
func (s *Server) prepare(t tuningArgs, b bankArgs, opts ...marker.Option) (*marker.Identifier, *imaging.Views, error) {
	if t.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	var cfg *config.TuningConfig
	if t.TuningPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(t.TuningPath); err != nil {
			return nil, nil, err
		}
	}

	bank, err := s.loadBank(b)
	if err != nil {
		return nil, nil, err
	}

	if s.cacheLimit > 0 && s.cache.Len() >= s.cacheLimit {
		if s.debug != nil {
			s.debug.Printf("image cache full (%d images), flushing", s.cache.Len())
		}
		s.cache.Clear()
	}
	views, err := s.cache.LoadViews(t.Path, cfg.GetBlurSigma())
	if err != nil {
		return nil, nil, err
	}

	if s.debug != nil {
		opts = append(opts, marker.WithLogger(s.debug))
	}
	id, err := marker.NewIdentifier(cfg.Params(), bank, opts...)
	if err != nil {
		return nil, nil, err
	}
	return id, views, nil
}

func frameOf(v *imaging.Views) marker.Frame {
	return marker.Frame{Image: v.Gray, GradX: v.GradX, GradY: v.GradY}
}

// === Identification Handlers ===

type markerIdentifyArgs struct {
	tuningArgs
	bankArgs
	candidateArgs
	Overlay bool    `json:"overlay"`
	Crop    bool    `json:"crop"`
	Zoom    float64 `json:"zoom"`
}

// cropMargin pads the crop around a marker, as a fraction of its semi-major
// axis.
const cropMargin = 0.25

// MarkerResult is the outcome of one identification as returned to clients.
type MarkerResult struct {
	marker.Result
	Center       geometry.Point2D       `json:"center"`
	RadiusRatios []float64              `json:"radius_ratios,omitempty"`
	IDSet        []ident.Match          `json:"id_set,omitempty"`
	StartOffset  int                    `json:"start_offset"`
	Overlay      *imaging.OverlayResult `json:"overlay,omitempty"`
	Crop         *imaging.CropResult    `json:"crop,omitempty"`
}

func newMarkerResult(res marker.Result, c *marker.Candidate, offset int) MarkerResult {
	return MarkerResult{
		Result:       res,
		Center:       c.Center,
		RadiusRatios: c.RadiusRatios,
		IDSet:        c.IDSet,
		StartOffset:  offset,
	}
}

func (s *Server) handleMarkerIdentify(args json.RawMessage) (interface{}, error) {
	var a markerIdentifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	cand, err := a.candidate()
	if err != nil {
		return nil, err
	}

	var opts []marker.Option
	var ov *imaging.Overlay
	if a.Overlay || a.Crop {
		ov = imaging.NewOverlay()
		opts = append(opts, marker.WithObserver(ov))
	}

	id, views, err := s.prepare(a.tuningArgs, a.bankArgs, opts...)
	if err != nil {
		return nil, err
	}

	if a.Evict {
		defer s.cache.Evict(a.Path)
	}

	res := id.Identify(frameOf(views), cand, rand.New(rand.NewSource(a.seed())))
	out := newMarkerResult(res, cand, id.StartOffset())

	if a.Overlay {
		if out.Overlay, err = ov.Encode(views.Source); err != nil {
			return nil, err
		}
	}
	if a.Crop {
		zoom := a.Zoom
		if zoom == 0 {
			zoom = 1
		}
		if out.Crop, err = ov.CropMarker(views.Source, cand.Ellipse, cropMargin, zoom); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type markerIdentifyBatchArgs struct {
	tuningArgs
	bankArgs
	Candidates []candidateArgs `json:"candidates"`
	Workers    int             `json:"workers"`
}

// BatchResult lists one MarkerResult per candidate, in request order.
type BatchResult struct {
	Markers    []MarkerResult `json:"markers"`
	Identified int            `json:"identified"`
}

func (s *Server) handleMarkerIdentifyBatch(args json.RawMessage) (interface{}, error) {
	var a markerIdentifyBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if len(a.Candidates) == 0 {
		return nil, fmt.Errorf("at least one candidate is required")
	}

	cands := make([]*marker.Candidate, len(a.Candidates))
	for i, ca := range a.Candidates {
		c, err := ca.candidate()
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		cands[i] = c
	}

	id, views, err := s.prepare(a.tuningArgs, a.bankArgs)
	if err != nil {
		return nil, err
	}

	if a.Evict {
		defer s.cache.Evict(a.Path)
	}

	results, err := id.IdentifyAll(context.Background(), frameOf(views), cands, a.Workers, a.seed())
	if err != nil {
		return nil, err
	}

	out := BatchResult{Markers: make([]MarkerResult, len(results))}
	for i, res := range results {
		out.Markers[i] = newMarkerResult(res, cands[i], id.StartOffset())
		if res.Status == marker.Reliable {
			out.Identified++
		}
	}
	return out, nil
}

// === Bank Handlers ===

type markerTemplateArgs struct {
	bankArgs
	Length int `json:"length"`
}

// TemplateResult holds the expected profile of every signature.
type TemplateResult struct {
	Length    int         `json:"length"`
	Templates [][]float64 `json:"templates"`
}

func (s *Server) handleMarkerTemplate(args json.RawMessage) (interface{}, error) {
	var a markerTemplateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if a.Length == 0 {
		a.Length = 100
	}

	bank, err := s.loadBank(a.bankArgs)
	if err != nil {
		return nil, err
	}
	m, err := ident.NewMatcher(bank, a.Length, 0, 1)
	if err != nil {
		return nil, err
	}
	return TemplateResult{Length: a.Length, Templates: m.Templates()}, nil
}

// BankInfoResult describes a bank.
type BankInfoResult struct {
	Count      int         `json:"count"`
	Signatures [][]float64 `json:"signatures"`
}

func (s *Server) handleBankInfo(args json.RawMessage) (interface{}, error) {
	var a bankArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	bank, err := s.loadBank(a)
	if err != nil {
		return nil, err
	}
	out := BankInfoResult{Count: bank.Len(), Signatures: make([][]float64, bank.Len())}
	for i := range out.Signatures {
		out.Signatures[i] = bank.Ratios(i)
	}
	return out, nil
}
