package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/ironsheep/cctag-identify/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("cctag-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("cctag-mcp - MCP server for circular fiducial marker identification")
			fmt.Println()
			fmt.Println("Usage: cctag-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  CCTAG_MCP_LOG_LEVEL=debug    Log identification traces to stderr")
			fmt.Printf("  CCTAG_MCP_CACHE_LIMIT=N      Decoded images kept in memory (default %d, 0 = no limit)\n", server.DefaultCacheLimit)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Tuning parameters are read per request from a JSON file (tuning_path).")
			return
		}
	}

	// stdout carries the protocol
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	var opts []server.Option
	if os.Getenv("CCTAG_MCP_LOG_LEVEL") == "debug" {
		log.Printf("CCTag MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		opts = append(opts, server.WithDebugLogger(log.Default()))
	}

	if v := os.Getenv("CCTAG_MCP_CACHE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Fatalf("Invalid CCTAG_MCP_CACHE_LIMIT %q", v)
		}
		opts = append(opts, server.WithCacheLimit(n))
	}

	srv := server.New(opts...)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
