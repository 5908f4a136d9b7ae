package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fixmyk8s/kubecuro/pkg/baseline"
	"github.com/fixmyk8s/kubecuro/pkg/engine"
	"github.com/fixmyk8s/kubecuro/pkg/types"
)

func newBaselineCmd() *cobra.Command {
	var (
		project   string
		out       string
		recursive bool
	)

	cmd := &cobra.Command{
		Use:   "baseline <path>...",
		Short: "Accept all current findings into a baseline file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := engine.New(engine.Config{Logger: newLogger()})

			findings, err := eng.Scan(cmd.Context(), args, types.ScanOptions{Recursive: recursive})
			if err != nil {
				return err
			}

			record := baseline.FromFindings(project, findings)
			if err := record.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline written to %s (%d fingerprints)\n", out, len(record.Issues))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project label stored in the baseline")
	cmd.Flags().StringVarP(&out, "output", "o", ".kubecuro-baseline.json", "baseline file to write")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	return cmd
}
