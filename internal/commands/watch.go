package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/taskdeck/internal/service"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reprint the task list periodically",
		Long: `Reprint the current page of the task list on an interval until interrupted.
The remembered filters apply, as with 'taskdeck ls'.`,
		Args: cobra.NoArgs,
		RunE: withApp(runWatch),
	}
	cmd.Flags().Duration("every", 30*time.Second, "Refresh interval (whole seconds, at least 1s)")
	cmd.Flags().Int("times", 0, "Stop after this many refreshes (0 runs until interrupted)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string, a *app) error {
	every, _ := cmd.Flags().GetDuration("every")
	times, _ := cmd.Flags().GetInt("times")

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	runs := 0
	done := make(chan struct{})

	refresh := func() {
		mu.Lock()
		defer mu.Unlock()
		if times > 0 && runs >= times {
			return
		}
		runs++

		a.svc.Refresh()
		reqCtx, cancel := a.context(ctx)
		page, err := a.svc.VisibleTasks(reqCtx)
		cancel()

		fmt.Fprintf(out, "\n⟳ %s\n", time.Now().Format("15:04:05"))
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		} else {
			printPage(out, page, time.Now())
		}
		if times > 0 && runs == times {
			close(done)
		}
	}

	scheduler := service.NewScheduler(time.Local)
	if _, err := scheduler.Every(every, refresh); err != nil {
		return err
	}

	refresh()
	scheduler.Start()
	defer scheduler.Stop()

	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}
