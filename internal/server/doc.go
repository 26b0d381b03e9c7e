// Package server implements the MCP (Model Context Protocol) server for
// circular fiducial marker identification.
//
// The server exposes the identification pipeline of the marker package as
// MCP tools. A client that has already detected candidate ellipses in an
// image asks the server which marker each candidate is, against a bank of
// known radius-ratio signatures.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Identification:
//   - marker_identify: Identify one candidate, optionally rendering an overlay
//   - marker_identify_batch: Identify several candidates of one image concurrently
//
// Bank Inspection:
//   - marker_template: Expected cut profile of every signature
//   - bank_info: Signature count and radius ratios
//
// Every tool takes its bank either inline ("bank") or from a text file
// ("bank_path"). Identification tools also accept a JSON tuning file
// ("tuning_path", see the config package) and a random seed for cut
// selection. Identical requests produce identical results.
//
// # Caching
//
// Decoded images and their gradient fields are cached by path and blur
// sigma. Bank files are cached by path. Both caches persist for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A candidate that cannot be identified is not an error: its result carries
// a status such as "not_reliable" or "optimization_diverged".
//
// # Usage
//
//	srv := server.New(server.WithDebugLogger(log.Default()))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
