package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hexperiment/sircontrol/pkg/mcp"
)

func main() {
	apiURL := flag.String("api", "http://127.0.0.1:8110", "Base URL of sircontrol-d API")
	flag.Parse()

	// Logs go to stderr; stdout carries the MCP stream.
	fmt.Fprintln(os.Stderr, `{"level":"info","msg":"mcp_started","component":"sircontrol-mcp"}`)

	s := mcp.NewServer(*apiURL)
	if err := s.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, `{"level":"fatal","msg":"mcp_serve_failed","error":"%v"}`+"\n", err)
		os.Exit(1)
	}
}
