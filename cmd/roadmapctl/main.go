package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/neurobridge-roadmap/internal/cli"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
