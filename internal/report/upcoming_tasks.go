package report

import (
	"context"
	"fmt"
	"strings"
)

// ExclusionFunc reports whether a task should be left out of the
// upcoming tasks report.
type ExclusionFunc func(Task) bool

// UpcomingTasksConfig holds the configuration constants for the
// upcoming project tasks report.
type UpcomingTasksConfig struct {
	ProjectName string

	// ColumnNames restricts the fetch to named board columns. Empty
	// means no column filter.
	ColumnNames []string

	// Order is the sort token passed through to the tracker; the
	// report itself never re-sorts.
	Order string

	// ExcludedTaskIDs are always left out of the report.
	ExcludedTaskIDs []int

	// CustomExclusions are evaluated in order; any match excludes the
	// task.
	CustomExclusions []ExclusionFunc
}

// UpcomingTasks is the collected result of one report run.
type UpcomingTasks struct {
	ProjectName string
	ColumnNames []string
	Tasks       []Task
}

// UpcomingProjectTasksDueReport lists a project's open tasks, in the
// tracker's order, minus the configured exclusions.
type UpcomingProjectTasksDueReport struct {
	tracker  Tracker
	cfg      UpcomingTasksConfig
	excluded map[int]struct{}
}

func NewUpcomingProjectTasksDueReport(tracker Tracker, cfg UpcomingTasksConfig) *UpcomingProjectTasksDueReport {
	excluded := make(map[int]struct{}, len(cfg.ExcludedTaskIDs))
	for _, id := range cfg.ExcludedTaskIDs {
		excluded[id] = struct{}{}
	}
	return &UpcomingProjectTasksDueReport{
		tracker:  tracker,
		cfg:      cfg,
		excluded: excluded,
	}
}

func (r *UpcomingProjectTasksDueReport) shouldInclude(task Task) bool {
	if _, ok := r.excluded[task.ID]; ok {
		return false
	}
	for _, exclude := range r.cfg.CustomExclusions {
		if exclude(task) {
			return false
		}
	}
	return true
}

// Collect resolves the configured column names to PHIDs (one call,
// only when columns are configured), fetches the project's tasks and
// applies the exclusions. Fetch order is preserved.
func (r *UpcomingProjectTasksDueReport) Collect(ctx context.Context) (*UpcomingTasks, error) {
	var columnPHIDs []string
	if len(r.cfg.ColumnNames) > 0 {
		columns, err := r.tracker.LookupProjectColumns(ctx, r.cfg.ProjectName, r.cfg.ColumnNames)
		if err != nil {
			return nil, fmt.Errorf("failed to look up project columns: %w", err)
		}
		for _, column := range columns {
			columnPHIDs = append(columnPHIDs, column.PHID)
		}
	}

	fetched, err := r.tracker.FetchProjectTasks(ctx, r.cfg.ProjectName, columnPHIDs, r.cfg.Order)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project tasks: %w", err)
	}

	var tasks []Task
	for _, task := range fetched {
		if r.shouldInclude(task) {
			tasks = append(tasks, task)
		}
	}

	return &UpcomingTasks{
		ProjectName: r.cfg.ProjectName,
		ColumnNames: r.cfg.ColumnNames,
		Tasks:       tasks,
	}, nil
}

// Render formats the collected tasks as chat-markup text: one header
// line, then one numbered line per task.
func (u *UpcomingTasks) Render() string {
	lines := []string{
		fmt.Sprintf("*%s - %s - Tasks Due Soon*", u.ProjectName, strings.Join(u.ColumnNames, ", ")),
	}

	for i, task := range u.Tasks {
		lines = append(lines, fmt.Sprintf("%d. _%s_ (<%s|%s>)", i+1, task.Name, task.URL, task.DisplayID()))
	}

	return strings.ToValidUTF8(strings.Join(lines, "\n"), "")
}

// GenerateReport implements Report.
func (r *UpcomingProjectTasksDueReport) GenerateReport(ctx context.Context) (string, error) {
	tasks, err := r.Collect(ctx)
	if err != nil {
		return "", err
	}
	return tasks.Render(), nil
}
