package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Afrawles/phabreport/internal/config"
	"github.com/Afrawles/phabreport/internal/phabreport"
	"github.com/Afrawles/phabreport/internal/phabricator"
	"github.com/Afrawles/phabreport/internal/report"
	"github.com/spf13/cobra"

	"github.com/schollz/progressbar/v3"
)

var (
	configPath   string
	phabURL      string
	conduitToken string

	reportType   string
	slackFlag    bool
	slackChannel string

	projectName string
	columnNames string
	taskOrder   string

	excelOutput string
	csvOutput   string
	jsonExport  bool

	adhocArgs string
)

var rootCmd = &cobra.Command{
	Use:   "phabreport",
	Short: "Generate Phabricator status reports for chat delivery",
	Long:  `PhabReport queries Phabricator's Conduit API for revisions and tasks and renders chat-ready status reports.`,
	Run:   generateReport,
}

var (
	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the user record behind the configured Conduit token",
		Run:   runWhoAmI,
	}

	adhocCmd = &cobra.Command{
		Use:   "adhoc <method>",
		Short: "Run an arbitrary Conduit method and print the raw result",
		Long:  `Runs any Conduit method, e.g. "phabreport adhoc maniphest.search --adhoc-args '{"queryKey":"open"}'".`,
		Args:  cobra.ExactArgs(1),
		Run:   runAdhoc,
	}
)

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(adhocCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&phabURL, "phabricator-url", "", "Phabricator base URL")
	rootCmd.PersistentFlags().StringVar(&conduitToken, "conduit-token", "", "Conduit API token")

	rootCmd.Flags().StringVarP(&reportType, "report-type", "r", "", "Report type: "+strings.Join(report.TypeNames(), ", "))
	rootCmd.Flags().BoolVar(&slackFlag, "slack", false, "Output report to Slack")
	rootCmd.Flags().StringVar(&slackChannel, "slack-channel", "", "Slack channel to use for displaying report")

	// upcoming tasks overrides
	rootCmd.Flags().StringVar(&projectName, "project", "", "Project name for the upcoming tasks report")
	rootCmd.Flags().StringVar(&columnNames, "columns", "", "Comma-separated board column names")
	rootCmd.Flags().StringVar(&taskOrder, "order", "", "Task sort order token")

	rootCmd.Flags().StringVar(&excelOutput, "excel", "", "Also export the revision status data as .xlsx to this directory")
	rootCmd.Flags().StringVar(&csvOutput, "csv", "", "Also export the task list as CSV to this directory")
	rootCmd.Flags().BoolVar(&jsonExport, "json", false, "Also export the raw report data as JSON to the output directory")

	adhocCmd.Flags().StringVar(&adhocArgs, "adhoc-args", "", "JSON object of arguments for the Conduit method")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// flags win over file and env
	if phabURL != "" {
		cfg.Phabricator.URL = phabURL
	}
	if conduitToken != "" {
		cfg.Phabricator.Token = conduitToken
	}
	if projectName != "" {
		cfg.Reports.UpcomingTasks.ProjectName = projectName
	}
	if columnNames != "" {
		cfg.Reports.UpcomingTasks.ColumnNames = parseCommaList(columnNames)
	}
	if taskOrder != "" {
		cfg.Reports.UpcomingTasks.Order = taskOrder
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func generateReport(cmd *cobra.Command, args []string) {
	if reportType == "" {
		fmt.Println("Report type is required. Use --report-type flag")
		fmt.Printf("Available types: %s\n", strings.Join(report.TypeNames(), ", "))
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		return
	}

	app := phabreport.New(cfg)

	reportCfg, err := app.ReportConfig()
	if err != nil {
		fmt.Printf("Invalid report configuration: %v\n", err)
		return
	}

	rep, err := report.New(reportType, app.Tracker, reportCfg)
	if err != nil {
		if errors.Is(err, report.ErrUnknownReportType) {
			fmt.Printf("Unknown report type %q. Available types: %s\n", reportType, strings.Join(report.TypeNames(), ", "))
		} else {
			fmt.Printf("Error building report: %v\n", err)
		}
		return
	}

	ctx := context.Background()

	bar := newSpinner("Fetching report data")
	text, err := runReport(ctx, cfg, rep)
	finishBar(bar)
	if err != nil {
		fmt.Printf("\nError generating report: %v\n", err)
		return
	}

	if err := app.Deliver(ctx, text, slackChannel, slackFlag); err != nil {
		fmt.Printf("Error delivering report: %v\n", err)
		return
	}
}

// runReport generates the report text and runs any requested exports
// off the same fetched data, so nothing is fetched twice.
func runReport(ctx context.Context, cfg *config.Config, rep report.Report) (string, error) {
	timestamp := time.Now().Format("20060102_150405")

	switch r := rep.(type) {
	case *report.RevisionStatusReport:
		status, err := r.Collect(ctx)
		if err != nil {
			return "", err
		}
		text, err := status.Render()
		if err != nil {
			return "", err
		}

		if excelOutput != "" {
			if err := report.NewExcelExporter(excelOutput).Export(status); err != nil {
				fmt.Printf("Failed to export Excel: %v\n", err)
			}
		}
		if jsonExport {
			filename := fmt.Sprintf("revision_status_%s.json", timestamp)
			if err := report.NewExporter(cfg.Output.Directory).ExportJSON(status, filename); err != nil {
				fmt.Printf("Failed to export JSON: %v\n", err)
			}
		}
		return text, nil

	case *report.UpcomingProjectTasksDueReport:
		tasks, err := r.Collect(ctx)
		if err != nil {
			return "", err
		}

		if csvOutput != "" {
			if err := report.NewCSVExporter(csvOutput).Export(tasks); err != nil {
				fmt.Printf("Failed to export CSV: %v\n", err)
			}
		}
		if jsonExport {
			filename := fmt.Sprintf("upcoming_tasks_%s.json", timestamp)
			if err := report.NewExporter(cfg.Output.Directory).ExportJSON(tasks, filename); err != nil {
				fmt.Printf("Failed to export JSON: %v\n", err)
			}
		}
		return tasks.Render(), nil

	default:
		return rep.GenerateReport(ctx)
	}
}

func runWhoAmI(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		return
	}

	app := phabreport.New(cfg)

	raw, err := app.Conduit.WhoAmI(context.Background())
	if err != nil {
		fmt.Printf("Error running whoami: %v\n", err)
		return
	}

	fmt.Println(prettyJSON(raw))
}

func runAdhoc(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		return
	}

	params, err := phabricator.ParamsFromJSON(adhocArgs)
	if err != nil {
		fmt.Printf("Invalid adhoc args: %v\n", err)
		return
	}

	app := phabreport.New(cfg)

	raw, err := app.Conduit.CallRaw(context.Background(), args[0], params)
	if err != nil {
		fmt.Printf("Error running %s: %v\n", args[0], err)
		return
	}

	fmt.Println(prettyJSON(raw))
}

func newSpinner(description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
