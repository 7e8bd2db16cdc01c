package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	acceptedHeader = ":white_check_mark: *Accepted and Ready to Land*: _(oldest first)_"
	todoHeader     = ":warning: *Needs Review*: _(newest first)_"
)

// RevisionStatusConfig holds the configuration constants for the
// revision status report.
type RevisionStatusConfig struct {
	// QueryKey selects the saved revision query on the tracker side.
	QueryKey string

	// AgeDays bounds the report to revisions modified within the last
	// N days, counted from midnight.
	AgeDays int
}

// RevisionStatus is the collected result of one report run: the two
// classified revision buckets plus the resolved lookup tables.
type RevisionStatus struct {
	Accepted []Revision
	Todo     []Revision
	Users    map[string]User
	Repos    map[string]Repo
}

// RevisionStatusReport lists the open Diffs a team is working on,
// split by acceptance / needs-review status.
type RevisionStatusReport struct {
	tracker Tracker
	cfg     RevisionStatusConfig
	now     func() time.Time

	userPHIDs []string
	repoPHIDs []string
}

func NewRevisionStatusReport(tracker Tracker, cfg RevisionStatusConfig) *RevisionStatusReport {
	return &RevisionStatusReport{
		tracker: tracker,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (r *RevisionStatusReport) addUsers(phids ...string) {
	r.userPHIDs = append(r.userPHIDs, phids...)
}

func (r *RevisionStatusReport) addRepo(phid string) {
	r.repoPHIDs = append(r.repoPHIDs, phid)
}

// lookupPHIDs resolves the accumulated user and repo PHIDs in one
// batch call per entity type, never per revision.
func (r *RevisionStatusReport) lookupPHIDs(ctx context.Context) (map[string]User, map[string]Repo, error) {
	users, err := r.tracker.LookupUsers(ctx, r.userPHIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up users: %w", err)
	}
	repos, err := r.tracker.LookupRepos(ctx, r.repoPHIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up repos: %w", err)
	}
	return users, repos, nil
}

// Collect fetches and classifies revisions, then resolves the lookup
// tables. Accepted ends up oldest first, Todo newest first. WIP
// revisions land in neither bucket, but their PHIDs are still
// harvested for the lookup tables.
func (r *RevisionStatusReport) Collect(ctx context.Context) (*RevisionStatus, error) {
	r.userPHIDs = r.userPHIDs[:0]
	r.repoPHIDs = r.repoPHIDs[:0]

	now := r.now()
	cutoff := now.AddDate(0, 0, -r.cfg.AgeDays)
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())

	revisions, err := r.tracker.FetchRevisions(ctx, r.cfg.QueryKey, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch revisions: %w", err)
	}

	var accepted, todo []Revision
	for _, rev := range revisions {
		switch {
		case rev.MeetsAcceptanceCriteria:
			accepted = append(accepted, rev)
		case rev.IsWIP:
			// skip WIP
		default:
			todo = append(todo, rev)
		}

		r.addUsers(rev.ReviewerPHIDs...)
		r.addUsers(rev.AuthorPHID)
		r.addRepo(rev.RepoPHID)
	}

	users, repos, err := r.lookupPHIDs(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].ModifiedAt.Before(accepted[j].ModifiedAt)
	})
	sort.SliceStable(todo, func(i, j int) bool {
		return todo[i].ModifiedAt.After(todo[j].ModifiedAt)
	})

	return &RevisionStatus{
		Accepted: accepted,
		Todo:     todo,
		Users:    users,
		Repos:    repos,
	}, nil
}

// Render formats the collected status as chat-markup text. Both
// sections restart numbering at 1; an empty run renders as an empty
// string with no headers.
func (s *RevisionStatus) Render() (string, error) {
	var lines []string

	appendSection := func(header string, revisions []Revision) error {
		lines = append(lines, header)
		for i, rev := range revisions {
			formatted, err := FormatRevision(rev, i+1, s.Users, s.Repos)
			if err != nil {
				return err
			}
			lines = append(lines, formatted...)
		}
		lines = append(lines, "")
		return nil
	}

	if len(s.Accepted) > 0 {
		if err := appendSection(acceptedHeader, s.Accepted); err != nil {
			return "", err
		}
	}

	if len(s.Todo) > 0 {
		if len(s.Accepted) > 0 {
			lines = append(lines, "")
		}
		if err := appendSection(todoHeader, s.Todo); err != nil {
			return "", err
		}
	}

	return strings.ToValidUTF8(strings.Join(lines, "\n"), ""), nil
}

// GenerateReport implements Report.
func (r *RevisionStatusReport) GenerateReport(ctx context.Context) (string, error) {
	status, err := r.Collect(ctx)
	if err != nil {
		return "", err
	}
	return status.Render()
}
