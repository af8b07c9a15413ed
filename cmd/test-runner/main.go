// Package main - test_runner.go
// Executable to run the gameplay scenario suite against the real engine.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/test"
)

func main() {
	fmt.Println("🍪 COOKIE CLICKER - GAMEPLAY SCENARIO SUITE")
	fmt.Println("================================================")

	workDir, err := os.MkdirTemp("", "cookie-scenarios-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create scratch dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(workDir)

	suite := test.NewSuite(logger.NewLogger(), workDir)
	results := suite.RunAll(context.Background())

	passed := 0
	failed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("📊 SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   ✅ Passed: %d\n", passed)
	fmt.Printf("   ❌ Failed: %d\n", failed)

	if failed > 0 {
		fmt.Println("\n⚠️  The engine needs attention")
		os.RemoveAll(workDir)
		os.Exit(1)
	}
	fmt.Println("\n✅ All scenarios passed")
}
