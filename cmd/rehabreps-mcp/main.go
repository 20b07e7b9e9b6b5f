// rehabreps-mcp runs the MCP server over stdio against a remote RehabReps
// instance. Data access goes through the REST API, so the binary can run on
// a workstation while the server lives on the tailnet.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/rehabreps/internal/mcp"
	"github.com/claude/rehabreps/internal/profile"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RehabReps server URL (e.g. https://rehabreps.tail1234.ts.net)")
	profilesPath := flag.String("profiles", "", "optional YAML file of extra exercise profiles")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("rehabreps-mcp", Version)
		return
	}

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: rehabreps-mcp -server <URL> [-profiles FILE]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Logs go to stderr; stdout carries the MCP protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	profiles := profile.NewRegistry()
	if *profilesPath != "" {
		if err := profiles.Load(*profilesPath); err != nil {
			log.Error("failed to load exercise profiles", "path", *profilesPath, "error", err)
			os.Exit(1)
		}
	}

	ds := mcp.NewHTTPClient(*serverURL)
	srv := mcp.New(ds, profiles, Version, log)

	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
