package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/fixmyk8s/kubecuro/pkg/engine"
	"github.com/fixmyk8s/kubecuro/pkg/output"
	"github.com/fixmyk8s/kubecuro/pkg/types"
)

const watchDebounce = 500 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Rescan a directory whenever a manifest changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := engine.New(engine.Config{Logger: newLogger()})

			format := types.FormatHuman
			if jsonOut {
				format = types.FormatJSON
			}
			formatter := output.NewFormatter(cmd.OutOrStdout(), format)

			rescan := func() {
				findings, err := eng.Scan(cmd.Context(), args, types.ScanOptions{})
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "scan failed: %v\n", err)
					return
				}
				formatter.Output(findings, types.Summarize(findings))
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			if err := watcher.Add(args[0]); err != nil {
				return err
			}

			rescan()

			// Editors fire bursts of events per save; coalesce them.
			var timer *time.Timer
			pending := make(chan struct{}, 1)
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !isManifest(ev.Name) {
						continue
					}
					if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
						continue
					}
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(watchDebounce, func() {
						select {
						case pending <- struct{}{}:
						default:
						}
					})
				case <-pending:
					rescan()
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

func isManifest(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
