// Package cli wires the engine into the kubecuro command tree. All
// analysis logic lives in the engine packages; this layer only parses
// flags and renders results.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fixmyk8s/kubecuro/pkg/types"
)

const version = "1.0.0"

var (
	verbose  bool
	exitCode int
)

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// NewRootCmd builds the kubecuro command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kubecuro",
		Short:         "Kubernetes manifest diagnostics and YAML auto-healer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging on stderr")

	root.AddCommand(newScanCmd())
	root.AddCommand(newHealCmd())
	root.AddCommand(newBaselineCmd())
	root.AddCommand(newWatchCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	exitCode = int(types.ExitOK)
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return int(types.ExitError)
	}
	return exitCode
}
