package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"outreach_engine/internal/app"
	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/model"
)

var (
	budget   int
	keyword  string
	topic    string
	industry string
	skipPost bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Publish a post, then send connection requests",
	Long: `Log in, optionally publish one post, then walk the category plan
(or a single --keyword) sending Connect/Follow requests until the
budget is spent.`,
	RunE: runKind(model.TaskKindConnect),
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Publish one post",
	RunE:  runKind(model.TaskKindPost),
}

var messagingCmd = &cobra.Command{
	Use:   "messaging",
	Short: "Answer unread conversations",
	RunE:  runKind(model.TaskKindMessaging),
}

func init() {
	connectCmd.Flags().IntVarP(&budget, "budget", "b", 0, "connection budget (default from config)")
	connectCmd.Flags().StringVarP(&keyword, "keyword", "k", "", "search one keyword instead of the category plan")
	connectCmd.Flags().BoolVar(&skipPost, "skip-post", false, "do not publish a post first")
	for _, c := range []*cobra.Command{connectCmd, postCmd} {
		c.Flags().StringVar(&topic, "topic", "", "post topic")
		c.Flags().StringVar(&industry, "industry", "", "post industry (default from config)")
	}
}

func credentials() (campaign.Credentials, error) {
	creds := campaign.Credentials{
		Email:    strings.TrimSpace(firstNonEmpty(email, os.Getenv("OUTREACH_EMAIL"))),
		Password: firstNonEmpty(password, os.Getenv("OUTREACH_PASSWORD")),
	}
	if creds.Email == "" || creds.Password == "" {
		return creds, errors.New("credentials required: pass --email/--password or set OUTREACH_EMAIL/OUTREACH_PASSWORD")
	}
	return creds, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func runKind(kind model.TaskKind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		if budget < 0 {
			return errors.New("budget must not be negative")
		}
		cfg, _, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		payload := model.TaskPayload{
			Email:    creds.Email,
			Keyword:  strings.TrimSpace(keyword),
			Budget:   budget,
			Topic:    strings.TrimSpace(topic),
			Industry: strings.TrimSpace(industry),
			SkipPost: skipPost,
		}
		task, err := a.Store.CreateTask(ctx, kind, payload)
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		orch := campaign.NewOrchestrator(campaign.Options{
			Opener:   a.Launcher,
			Content:  a.Content,
			Reporter: a.Store,
			Bus:      a.Bus,
			Metrics:  a.Metrics,
			Limiter:  campaign.NewActionLimiter(cfg.Limits),
			Settings: campaign.SettingsFromConfig(cfg),
		})
		result := orch.Run(ctx, campaign.RunSpec{
			TaskID:      task.ID,
			Kind:        kind,
			Credentials: creds,
			Budget:      budget,
			Keyword:     payload.Keyword,
			Topic:       payload.Topic,
			Industry:    payload.Industry,
			SkipPost:    skipPost,
		})

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "task %s: %s\n", task.ID, campaign.Summary(kind, result))
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if result.Status.Aborted() {
			return fmt.Errorf("campaign %s: %s", result.Status, result.Error)
		}
		return nil
	}
}
