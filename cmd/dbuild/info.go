package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dkoosis/dbuild/internal/history"
	"github.com/dkoosis/dbuild/internal/toolchain"
)

func newEnvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the resolved Defold toolchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, false); err != nil {
				return err
			}
			env, err := toolchain.NewResolver(a.logger).Resolve(a.cfg.EditorPath)
			if err != nil {
				return a.setupError(err)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "install\t%s\n", env.InstallPath)
			fmt.Fprintf(tw, "version\t%s\n", env.Version)
			fmt.Fprintf(tw, "build\t%s\n", env.BuildID)
			fmt.Fprintf(tw, "jdk\t%s\n", env.RuntimePath)
			fmt.Fprintf(tw, "java\t%s\n", env.JavaExecutable)
			fmt.Fprintf(tw, "archive\t%s\n", env.ArchivePath)
			if a.projectFile != "" {
				fmt.Fprintf(tw, "project\t%s\n", a.projectFile)
			}
			return tw.Flush()
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		all   bool
	)
	c := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, false); err != nil {
				return err
			}
			path, err := a.cfg.HistoryPath()
			if err != nil {
				return a.setupError(err)
			}
			store, err := history.Open(path)
			if err != nil {
				return a.setupError(err)
			}
			defer store.Close()

			filter := a.projectFile
			if all {
				filter = ""
			}
			entries, err := store.Recent(cmd.Context(), filter, limit)
			if err != nil {
				return a.setupError(err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.stdout, "No runs recorded. Enable with --history or history.enabled in settings.")
				return nil
			}
			return history.WriteTable(a.stdout, entries)
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	c.Flags().BoolVar(&all, "all", false, "Show runs of every project")
	return c
}
