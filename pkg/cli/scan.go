package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/fixmyk8s/kubecuro/pkg/baseline"
	"github.com/fixmyk8s/kubecuro/pkg/engine"
	"github.com/fixmyk8s/kubecuro/pkg/output"
	"github.com/fixmyk8s/kubecuro/pkg/types"
)

func newScanCmd() *cobra.Command {
	var (
		jsonOut      bool
		recursive    bool
		minSeverity  string
		baselinePath string
	)

	cmd := &cobra.Command{
		Use:   "scan <path>...",
		Short: "Analyze manifests without modifying them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := engine.New(engine.Config{Logger: newLogger()})

			findings, err := eng.Scan(cmd.Context(), args, types.ScanOptions{
				Recursive:   recursive,
				MinSeverity: types.Severity(strings.ToUpper(minSeverity)),
			})
			if err != nil {
				return err
			}

			var suppressed []types.Finding
			if baselinePath != "" {
				record, err := baseline.Load(baselinePath)
				if err != nil {
					return err
				}
				findings, suppressed = baseline.Partition(findings, record.Set())
			}

			summary := types.Summarize(findings)
			summary.Suppressed = len(suppressed)

			format := types.FormatHuman
			if jsonOut {
				format = types.FormatJSON
			}
			if err := output.NewFormatter(cmd.OutOrStdout(), format).Output(findings, summary); err != nil {
				return err
			}

			exitCode = int(types.ExitCodeFor(findings))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().StringVar(&minSeverity, "min-severity", "", "hide findings below this severity (info, low, medium, high, critical)")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "suppress findings recorded in this baseline file")
	return cmd
}
