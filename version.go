package main

// Build-time variables, set via ldflags:
//
//	go build -ldflags "-X main.version=1.2.0 -X main.commit=$(git rev-parse --short HEAD) -X main.date=$(date -u +%Y-%m-%d)"
var (
	version = "1.2.0"
	commit  = "dev"
	date    = "unknown"
)
