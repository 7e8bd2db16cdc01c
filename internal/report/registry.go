package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Report generates a chat-formatted text report in one shot. Each
// call is independent and all-or-nothing: any collaborator failure
// aborts the whole report.
type Report interface {
	GenerateReport(ctx context.Context) (string, error)
}

// Config bundles the per-type report configuration.
type Config struct {
	RevisionStatus RevisionStatusConfig
	UpcomingTasks  UpcomingTasksConfig
}

// Constructor builds a report generator from a tracker and the report
// configuration.
type Constructor func(Tracker, Config) Report

// ErrUnknownReportType is returned by New for names outside the
// registry.
var ErrUnknownReportType = errors.New("unknown report type")

// ReportTypes returns the registry: the closed mapping of report type
// names to constructors.
func ReportTypes() map[string]Constructor {
	return map[string]Constructor{
		"RevisionStatus": func(tracker Tracker, cfg Config) Report {
			return NewRevisionStatusReport(tracker, cfg.RevisionStatus)
		},
		"UpcomingProjectTasksDue": func(tracker Tracker, cfg Config) Report {
			return NewUpcomingProjectTasksDueReport(tracker, cfg.UpcomingTasks)
		},
	}
}

// TypeNames returns the registered report type names, sorted.
func TypeNames() []string {
	types := ReportTypes()
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named report, or fails with ErrUnknownReportType.
func New(name string, tracker Tracker, cfg Config) (Report, error) {
	ctor, ok := ReportTypes()[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, name)
	}
	return ctor(tracker, cfg), nil
}
