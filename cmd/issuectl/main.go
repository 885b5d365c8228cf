// Package main implements issuectl, a command-line client for issued.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	server  string
	timeout time.Duration
	out     io.Writer
}

func (o *options) client() *client {
	return newClient(o.server, o.timeout)
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}

	root := &cobra.Command{
		Use:   "issuectl",
		Short: "CLI for the issued issue tracker",
		Long: `issuectl creates, lists, updates and deletes issues on an issued server.

Examples:
  # List open issues in a project
  issuectl list apitest --filter open=true

  # Create an issue
  issuectl create apitest --title "Login fails" --text "500 on submit" --created-by joe

  # Close an issue
  issuectl close apitest 1712345678901`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:3000", "issued server URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		newListCmd(opts),
		newCreateCmd(opts),
		newUpdateCmd(opts),
		newCloseCmd(opts),
		newDeleteCmd(opts),
		newProjectsCmd(opts),
		newHealthCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

func newListCmd(opts *options) *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List a project's issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parsePairs(filters)
			if err != nil {
				return err
			}
			issues, err := opts.client().list(cmd.Context(), args[0], parsed)
			if err != nil {
				return err
			}
			return printJSON(opts.out, issues)
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field=value filter, repeatable")
	return cmd
}

func newCreateCmd(opts *options) *cobra.Command {
	var title, text, createdBy, assignedTo, status string
	cmd := &cobra.Command{
		Use:   "create <project>",
		Short: "Create an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := opts.client().create(cmd.Context(), args[0], map[string]any{
				"issue_title": title,
				"issue_text":  text,
				"created_by":  createdBy,
				"assigned_to": assignedTo,
				"status_text": status,
			})
			if err != nil {
				return err
			}
			return printJSON(opts.out, created)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "issue title (required)")
	cmd.Flags().StringVar(&text, "text", "", "issue text (required)")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "reporter (required)")
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "assignee")
	cmd.Flags().StringVar(&status, "status", "", "status text")
	return cmd
}

func newUpdateCmd(opts *options) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "update <project> <id>",
		Short: "Merge fields into an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parsePairs(sets)
			if err != nil {
				return err
			}
			fields := make(map[string]any, len(parsed))
			for k, v := range parsed {
				fields[k] = v
			}
			res, err := opts.client().update(cmd.Context(), args[0], args[1], fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "%s: %s\n", res.Result, res.ID)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to set, repeatable")
	return cmd
}

func newCloseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "close <project> <id>",
		Short: "Close an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().update(cmd.Context(), args[0], args[1], map[string]any{"open": false})
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "%s: %s\n", res.Result, res.ID)
			return nil
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project> <id>",
		Short: "Delete an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().remove(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "%s: %s\n", res.Result, res.ID)
			return nil
		},
	}
}

func newProjectsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with issue counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := opts.client().projects(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(opts.out, projects)
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := opts.client().health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Server Status: %s\n", status)
			return nil
		},
	}
}

// parsePairs splits key=value arguments. Values may contain '='.
func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q: want field=value", p)
		}
		out[k] = v
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// signalContext is cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
