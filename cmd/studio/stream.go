package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/stream"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Follow the backend's log stream for a simulated message",
	Long: `Runs a RAG simulation through the backend's streaming endpoint and prints each stage
as it is reported. On a terminal, press Enter to pause and again to resume; events that
arrive while paused are dropped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		safeMode, _ := cmd.Flags().GetBool("safe-mode")
		if strings.TrimSpace(message) == "" {
			return fmt.Errorf("%w: --message is required", domain.ErrInvalid)
		}
		var leadID *int
		if cmd.Flags().Changed("lead-id") {
			id, _ := cmd.Flags().GetInt("lead-id")
			leadID = &id
		}

		c, err := backend()
		if err != nil {
			return err
		}
		sc := commandContext(cmd)
		defer sc.Cancel()

		jsonOut := asJSON(cmd)
		v := stream.NewViewer(
			stream.WithTimeout(app.cfg.Stream.Timeout),
			stream.WithLogger(app.logger),
			stream.WithHandler(func(ev domain.LogEvent) {
				if jsonOut {
					_ = app.out.JSON(ev)
					return
				}
				printLogEvent(ev)
			}),
		)
		if err := v.Open(sc, c.StreamURL(message, safeMode, leadID)); err != nil {
			return err
		}
		defer v.Close()

		if term.IsTerminal(int(os.Stdin.Fd())) {
			go togglePause(v)
		}

		select {
		case <-v.Done():
		case <-sc.Done():
			_ = v.Close()
		}
		if n := v.Dropped(); n > 0 {
			app.logger.Info("events dropped while paused", "count", n)
		}
		if err := v.Err(); err != nil {
			if errors.Is(err, stream.ErrTimeout) {
				return fmt.Errorf("%w after %s", err, app.cfg.Stream.Timeout)
			}
			return err
		}
		return nil
	},
}

func printLogEvent(ev domain.LogEvent) {
	ts := time.UnixMilli(int64(ev.Timestamp * 1000)).Local().Format("15:04:05.000")
	line := fmt.Sprintf("%s  %-12s %s", ts, ev.Stage, ev.Event)
	if ev.DurationMS != nil {
		line += fmt.Sprintf(" (%dms)", *ev.DurationMS)
	}
	app.out.Printf("%s\n", line)
}

func togglePause(v *stream.Viewer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if v.Paused() {
			v.Resume()
			fmt.Fprintln(os.Stderr, "resumed")
		} else {
			v.Pause()
			fmt.Fprintln(os.Stderr, "paused, press Enter to resume")
		}
	}
}

func init() {
	rootCmd.AddCommand(streamCmd)
	f := streamCmd.Flags()
	f.StringP("message", "m", "", "Message to simulate")
	f.Bool("safe-mode", true, "Ask the backend not to persist anything")
	f.Int("lead-id", 0, "RAG test lead whose history is used")
}
