// =============================================================================
// Estoque Analítico - Main Entry Point
// =============================================================================
//
// USAGE:
//   estoque process   - Convert every export in the input directory
//   estoque convert   - Convert a single export
//   estoque inspect   - Summarize generated workbooks
//   estoque serve     - Start the HTTP upload shell
//   estoque version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : parser, workbook generator, validation, server
//   - pkg/utils  : file discovery, archiving and reports
//
// =============================================================================

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlefeBarboza/RELATORIO-AX00007/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
