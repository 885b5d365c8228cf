package main

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/issuetracker/internal/events"
)

func newWatchCmd(opts *options) *cobra.Command {
	var natsURL, prefix string
	cmd := &cobra.Command{
		Use:   "watch [project]",
		Short: "Stream issue events from NATS",
		Long: `Stream create, update and delete events published by issued.

Requires issued to run with events enabled. Without a project, events
for every project are shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := ""
			if len(args) == 1 {
				project = args[0]
			}

			nc, err := nats.Connect(natsURL, nats.Name("issuectl"))
			if err != nil {
				return fmt.Errorf("connect to nats %s: %w", natsURL, err)
			}
			defer nc.Close()

			sub, err := events.Subscribe(nc, prefix, project, func(evt events.Event) {
				fmt.Fprintf(opts.out, "%s %s %s %s\n", evt.At.Format("15:04:05.000"), evt.Project, evt.Type, evt.IssueID)
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			defer sub.Unsubscribe()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats", nats.DefaultURL, "NATS server URL")
	cmd.Flags().StringVar(&prefix, "prefix", "issues", "event subject prefix")
	return cmd
}
