package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/HugeFrog24/video-playbook/utils"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List saved runs, or show one run",
		Long: `Without arguments, history lists the runs saved with generate --save.
Given a run id it prints that run. With --from-xml it prints a run from a
results file written by generate --output instead of the run store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if xmlPath, _ := cmd.Flags().GetString("from-xml"); xmlPath != "" {
				if len(args) > 0 {
					return fmt.Errorf("--from-xml does not take a run id")
				}
				run, err := utils.ReadXMLFile(xmlPath)
				if err != nil {
					return err
				}
				return printRun(cmd.OutOrStdout(), run, jsonOut)
			}

			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := utils.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger := utils.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			store, err := utils.OpenRunStore(cfg.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printRun(cmd.OutOrStdout(), run, jsonOut)
			}

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved runs.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tVIDEO\tMODEL\tPLAYBOOKS\tBEST")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.VideoURI, r.Model, r.Playbooks, r.BestRating)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	cmd.Flags().String("from-xml", "", "Show the run stored in this results XML file")
	return cmd
}

func saveRun(ctx context.Context, cfg utils.Config, logger *slog.Logger, run utils.Run) error {
	store, err := utils.OpenRunStore(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(ctx, run)
}
