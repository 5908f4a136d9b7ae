package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/fixmyk8s/kubecuro/pkg/engine"
	"github.com/fixmyk8s/kubecuro/pkg/types"
)

func newHealCmd() *cobra.Command {
	var (
		dryRun     bool
		noDefaults bool
		recursive  bool
		showDiff   bool
	)

	cmd := &cobra.Command{
		Use:   "heal <path>...",
		Short: "Repair manifests in place: syntax healing plus auto-fixable rule mutations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := engine.New(engine.Config{Logger: newLogger()})

			files, err := engine.Discover(args, recursive)
			if err != nil {
				return err
			}

			healed, failed := 0, 0
			for _, file := range files {
				var before []byte
				if showDiff {
					before, err = os.ReadFile(file)
					if err != nil {
						return err
					}
				}

				after, codes, err := eng.Heal(file, types.HealOptions{
					ApplyFixes:    true,
					ApplyDefaults: !noDefaults,
					DryRun:        dryRun,
					ReturnContent: showDiff,
				})
				if err != nil {
					// A failed write on one file never aborts the rest;
					// the original has already been restored.
					var werr *engine.WriteError
					if errors.As(err, &werr) {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: write failed, original restored: %v\n", file, werr.Err)
						failed++
						continue
					}
					return err
				}
				if len(codes) == 0 {
					continue
				}
				healed++
				verb := "healed"
				if dryRun {
					verb = "would heal"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, file, joinCodes(codes))

				if showDiff && string(before) != string(after) {
					diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
						A:        difflib.SplitLines(string(before)),
						B:        difflib.SplitLines(string(after)),
						FromFile: file,
						ToFile:   file,
						Context:  3,
					})
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), diff)
				}
			}

			if healed == 0 && failed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All manifests healthy. Nothing to heal.")
			}
			if failed > 0 {
				exitCode = int(types.ExitError)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&noDefaults, "no-defaults", false, "do not inject default resource limits")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff of each repaired file")
	return cmd
}

func joinCodes(codes map[string]bool) string {
	keys := make([]string, 0, len(codes))
	for c := range codes {
		keys = append(keys, c)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}
