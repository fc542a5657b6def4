package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/model"
	"outreach_engine/internal/store/sqlite"
)

var planBudget int

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show the category plan and per-category targets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		b := planBudget
		if b <= 0 {
			b = cfg.Campaign.TotalBudget
		}
		cats := cfg.Campaign.Categories
		target := campaign.PerCategoryTarget(b, len(cats))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "budget %d, %d categories, target %d each\n", b, len(cats), target)
		fmt.Fprintln(w, "CATEGORY\tKEYWORDS")
		for _, c := range cats {
			fmt.Fprintf(w, "%s\t%d\n", c.Name, len(c.Keywords))
		}
		return w.Flush()
	},
}

var (
	listKind  string
	listLimit int
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List recent tasks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer store.Close()

		tasks, err := store.ListTasks(ctx, model.TaskKind(listKind), listLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tSTATUS\tCREATED\tMESSAGE")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Kind, t.Status, t.CreatedAt.Local().Format(time.DateTime), t.Message)
		}
		return w.Flush()
	},
}

func init() {
	categoriesCmd.Flags().IntVarP(&planBudget, "budget", "b", 0, "budget to plan for (default from config)")
	tasksCmd.Flags().StringVar(&listKind, "kind", "", "filter by kind: post, connect or messaging")
	tasksCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max rows")
}
