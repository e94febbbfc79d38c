package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"arxivdigest/internal/database"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envFile    string
	dbPath     string
	debug      bool
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "arxiv-digest",
		Short:         "Daily keyword digest of new arXiv papers, plus a starred-paper list",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.json", "path to the JSON config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file holding SLACK_WEBHOOK_URL")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the stars database (default: db_path from config)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newFetchCommand(opts, stdout),
		newStarCommand(opts, stdout),
		newListCommand(opts, stdout),
		newSearchCommand(opts, stdout),
		newWatchCommand(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(stdout, "arxiv-digest version %s\n", Version)
			},
		},
	)
	return root
}

func newFetchCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	var (
		sinceHours int
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch recent papers, filter by keyword and post the digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.FetchDigest(cmd.Context(), sinceHours, dryRun)
			if result != nil {
				fmt.Fprintln(stdout, result.Text)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&sinceHours, "since-hours", 24, "size of the submission window in hours")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest without posting it")
	return cmd
}

func newStarCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "star <arxiv-id>",
		Short: "Star a paper by arXiv id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			star, err := a.service.Star(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Starred %s: %s\n", star.ID, star.Title)
			return nil
		},
	}
}

func newListCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List starred papers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stars, err := a.service.ListStars(cmd.Context())
			if err != nil {
				return err
			}
			printStars(stdout, stars, "No starred papers.")
			return nil
		},
	}
}

func newSearchCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search starred papers by title or abstract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stars, err := a.service.SearchStars(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStars(stdout, stars, "No matches in stars.")
			return nil
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var (
		schedule   string
		sinceHours int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Post digests on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if schedule == "" {
				schedule = a.cfg.Schedule
			}
			if err := a.service.Start(schedule, sinceHours); err != nil {
				return err
			}
			defer a.service.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression (default: schedule from config)")
	cmd.Flags().IntVar(&sinceHours, "since-hours", 24, "size of the submission window in hours")
	return cmd
}

func printStars(w io.Writer, stars []database.Star, empty string) {
	if len(stars) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, s := range stars {
		fmt.Fprintf(w, "%s | %s\n%s\n%s\n\n", s.ID, s.Title, s.URL, s.AddedAt)
	}
}
