// Command demoscanner starts the fake scanner service for demonstrating the
// dashboard pipeline without real infrastructure.
// Usage: go run ./cmd/demoscanner [port]
// Default port: 8090
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/KJWesthoff/ventiscan/internal/demoscanner"
)

func main() {
	cfg := demoscanner.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   VentiScan Demo Scanner Service")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("This service mimics the external scanner API:")
	fmt.Println("  - JWT login (demo / demo)")
	fmt.Println("  - Scripted scan progress over several polls")
	fmt.Println("  - Findings that lag completion by a few requests,")
	fmt.Println("    exercising the dashboard's reconciliation retries")
	fmt.Println()

	svc := demoscanner.NewDemoScanner(cfg)
	if err := svc.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
