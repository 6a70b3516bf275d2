package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Rrens/knowflow/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present; real environment variables still win
	for _, p := range []string{".env", "../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
