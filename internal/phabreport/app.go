package phabreport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/Afrawles/phabreport/internal/config"
	"github.com/Afrawles/phabreport/internal/phabricator"
	"github.com/Afrawles/phabreport/internal/report"
	"github.com/Afrawles/phabreport/internal/slack"
)

type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Conduit *phabricator.Client
	Tracker report.Tracker
	Slack   *slack.Client
}

func New(cfg *config.Config) *Application {
	// Report text goes to stdout; logs stay on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	source := phabricator.NewSource(cfg.Phabricator.URL, cfg.Phabricator.Token)

	app := &Application{
		Config:  cfg,
		Logger:  logger,
		Conduit: source.Client,
		Tracker: source,
	}

	if cfg.Slack.Token != "" {
		app.Slack = slack.NewClient(cfg.Slack.Token)
		logger.Info("slack delivery initialized")
	}

	return app
}

// ReportConfig translates the file/env configuration into the report
// package's config, compiling name patterns into exclusion predicates.
func (app *Application) ReportConfig() (report.Config, error) {
	tasks := app.Config.Reports.UpcomingTasks

	var exclusions []report.ExclusionFunc
	for _, pattern := range tasks.ExcludedNamePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return report.Config{}, fmt.Errorf("failed to compile exclusion pattern %q: %w", pattern, err)
		}
		exclusions = append(exclusions, func(t report.Task) bool {
			return re.MatchString(t.Name)
		})
	}

	return report.Config{
		RevisionStatus: report.RevisionStatusConfig{
			QueryKey: app.Config.Reports.RevisionStatus.QueryKey,
			AgeDays:  app.Config.Reports.RevisionStatus.AgeDays,
		},
		UpcomingTasks: report.UpcomingTasksConfig{
			ProjectName:      tasks.ProjectName,
			ColumnNames:      tasks.ColumnNames,
			Order:            tasks.Order,
			ExcludedTaskIDs:  tasks.ExcludedTaskIDs,
			CustomExclusions: exclusions,
		},
	}, nil
}

// GenerateReport builds the named report from the registry and runs it.
func (app *Application) GenerateReport(ctx context.Context, reportType string) (string, error) {
	cfg, err := app.ReportConfig()
	if err != nil {
		return "", err
	}

	rep, err := report.New(reportType, app.Tracker, cfg)
	if err != nil {
		return "", err
	}

	app.Logger.Info("generating report", "type", reportType)

	text, err := rep.GenerateReport(ctx)
	if err != nil {
		app.Logger.Error("failed to generate report", "type", reportType, "error", err)
		return "", err
	}

	return text, nil
}

// Deliver sends the report to Slack when requested, otherwise prints
// it to stdout.
func (app *Application) Deliver(ctx context.Context, text, channel string, toSlack bool) error {
	if !toSlack {
		fmt.Println(text)
		return nil
	}

	if app.Slack == nil {
		return fmt.Errorf("slack delivery requested but no slack token configured")
	}
	if channel == "" {
		channel = app.Config.Slack.Channel
	}
	if channel == "" {
		return fmt.Errorf("slack delivery requested but no channel configured")
	}

	if err := app.Slack.PostMessage(ctx, channel, text); err != nil {
		return fmt.Errorf("failed to deliver report to slack: %w", err)
	}
	app.Logger.Info("report delivered", "channel", channel)
	return nil
}
