package cli

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/agentic-planner/internal/inbox"
	"github.com/nhle/agentic-planner/internal/theme"
)

func addInboxCommand(parent *cobra.Command, rt *runtime) {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Apply mailed progress reports",
	}
	addInboxSyncCmd(cmd, rt)
	parent.AddCommand(cmd)
}

func addInboxSyncCmd(parent *cobra.Command, rt *runtime) {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Apply unseen mail from known senders",
		Long: `Read unseen mail from the configured mailbox, map each sender to a user
through inbox.senders, and apply the message as a bulk progress report.
Messages are marked seen only when their report was applied.

Examples:
  planner inbox sync           # one pass
  planner inbox sync --watch   # poll every inbox.poll_interval_sec`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if watch {
				poller, err := a.Poller()
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return poller.Run(ctx)
			}

			syncer, err := a.Syncer()
			if err != nil {
				return err
			}
			report, err := syncer.SyncOnce(cmd.Context())
			if err != nil {
				return err
			}
			return rt.emit(cmd.OutOrStdout(), report, func(w io.Writer) { printSyncReport(w, report) })
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling until interrupted")
	parent.AddCommand(cmd)
}

func printSyncReport(w io.Writer, r inbox.SyncReport) {
	fmt.Fprintln(w, theme.SuccessStyle.Render(fmt.Sprintf("✓ %d message(s) applied", r.Applied)))
	field(w, "Fetched", fmt.Sprint(r.Fetched))
	field(w, "Skipped", fmt.Sprint(r.Skipped))
	field(w, "Failed", fmt.Sprint(r.Failed))
	field(w, "Task updates", fmt.Sprint(r.Updates))
}
