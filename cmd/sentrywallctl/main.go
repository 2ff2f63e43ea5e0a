// Command sentrywallctl is the example front-end for sentrywall
// (spec.md §6 "a CLI tool that loads policies and streams alerts", out
// of core scope but built as the ambient/example layer — see
// SPEC_FULL.md §11).
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
