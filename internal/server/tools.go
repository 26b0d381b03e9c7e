package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// bankProperties are the two ways a tool accepts a radius-ratio bank.
func bankProperties() map[string]interface{} {
	return map[string]interface{}{
		"bank_path": map[string]interface{}{
			"type":        "string",
			"description": "Path to a bank file: one signature per line, ratios separated by spaces or commas, '#' comments",
		},
		"bank": map[string]interface{}{
			"type":        "array",
			"description": "Inline bank: one array of radius ratios per signature. Takes precedence over bank_path",
			"items": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "number"},
			},
		},
	}
}

var pointSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"x": map[string]interface{}{"type": "number"},
		"y": map[string]interface{}{"type": "number"},
	},
	"required": []string{"x", "y"},
}

var ellipseSchema = map[string]interface{}{
	"type":        "object",
	"description": "Outer ellipse of the marker in pixel coordinates",
	"properties": map[string]interface{}{
		"center": pointSchema,
		"a": map[string]interface{}{
			"type":        "number",
			"description": "Semi-major axis in pixels",
		},
		"b": map[string]interface{}{
			"type":        "number",
			"description": "Semi-minor axis in pixels",
		},
		"angle": map[string]interface{}{
			"type":        "number",
			"description": "Orientation of the major axis in radians",
			"default":     0.0,
		},
	},
	"required": []string{"center", "a", "b"},
}

// candidateProperties describe one marker hypothesis.
func candidateProperties() map[string]interface{} {
	return map[string]interface{}{
		"ellipse": ellipseSchema,
		"boundary": map[string]interface{}{
			"type":        "array",
			"description": "Outer boundary points. When omitted, boundary_count points are sampled on the ellipse",
			"items":       pointSchema,
		},
		"boundary_count": map[string]interface{}{
			"type":        "integer",
			"description": "Points sampled on the ellipse when boundary is omitted. Default 100",
			"default":     100,
		},
		"center": map[string]interface{}{
			"type":        "object",
			"description": "Initial imaged center estimate. Default: ellipse center",
			"properties":  pointSchema["properties"],
		},
	}
}

func merge(maps ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	common := map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the image file",
		},
		"tuning_path": map[string]interface{}{
			"type":        "string",
			"description": "Optional JSON tuning file (crowns, cuts, trials, solver, matching, ...)",
		},
		"seed": map[string]interface{}{
			"type":        "integer",
			"description": "Seed of the cut selection trials. Default 1",
			"default":     1,
		},
		"evict": map[string]interface{}{
			"type":        "boolean",
			"description": "Drop the image and its gradients from the server cache after this call. Default false",
			"default":     false,
		},
	}

	return []Tool{
		// Identification
		{
			Name:        "marker_identify",
			Description: "Identify one circular fiducial marker from its detected outer ellipse. Returns the status, marker ID, score, refined center and the ranked candidate IDs.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(common, bankProperties(), candidateProperties(), map[string]interface{}{
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Return a base64 PNG with boundary, refined and center points drawn. Default false",
						"default":     false,
					},
					"crop": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the overlay cropped around the candidate ellipse. Default false",
						"default":     false,
					},
					"zoom": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor applied to the crop (e.g., 2.0 = double size). Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path", "ellipse"},
			},
		},
		{
			Name:        "marker_identify_batch",
			Description: "Identify several markers of one image concurrently. Candidate i uses seed+i, so results do not depend on the worker count.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(common, bankProperties(), map[string]interface{}{
					"candidates": map[string]interface{}{
						"type":        "array",
						"description": "Marker hypotheses",
						"items": map[string]interface{}{
							"type":       "object",
							"properties": candidateProperties(),
							"required":   []string{"ellipse"},
						},
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Concurrent identifications. Default: number of CPUs",
					},
				}),
				"required": []string{"path", "candidates"},
			},
		},

		// Bank inspection
		{
			Name:        "marker_template",
			Description: "Return the expected ring profile (+1 light, -1 dark) of every bank signature for a given signal length.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(bankProperties(), map[string]interface{}{
					"length": map[string]interface{}{
						"type":        "integer",
						"description": "Samples per profile. Default 100",
						"default":     100,
					},
				}),
			},
		},
		{
			Name:        "bank_info",
			Description: "Return the number of signatures of a radius-ratio bank and their ratios.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": bankProperties(),
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
