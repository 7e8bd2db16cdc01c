package report

import (
	"context"
	"strconv"
	"time"
)

// Revision is a code review as the tracker reports it, with the
// review-state booleans already derived by the tracker adapter.
type Revision struct {
	ID                      int
	Title                   string
	URL                     string
	ModifiedAt              time.Time
	AuthorPHID              string
	ReviewerPHIDs           []string
	AcceptorPHIDs           []string
	BlockerPHIDs            []string
	RepoPHID                string
	MeetsAcceptanceCriteria bool
	IsWIP                   bool
}

// DisplayID is the identifier users see, e.g. "D123".
func (r Revision) DisplayID() string {
	return "D" + strconv.Itoa(r.ID)
}

type Task struct {
	ID   int
	Name string
	URL  string
}

// DisplayID is the identifier users see, e.g. "T456".
func (t Task) DisplayID() string {
	return "T" + strconv.Itoa(t.ID)
}

type User struct {
	PHID string
	Name string
}

type Repo struct {
	PHID         string
	ReadableName string
}

type ProjectColumn struct {
	PHID string
	Name string
}

// Tracker is the project-tracking service the reports pull from.
// internal/phabricator implements it against the Conduit API; tests
// substitute fakes.
type Tracker interface {
	FetchRevisions(ctx context.Context, queryKey string, modifiedAfter time.Time) ([]Revision, error)
	LookupUsers(ctx context.Context, phids []string) (map[string]User, error)
	LookupRepos(ctx context.Context, phids []string) (map[string]Repo, error)
	LookupProjectColumns(ctx context.Context, projectName string, columnNames []string) ([]ProjectColumn, error)
	FetchProjectTasks(ctx context.Context, projectName string, columnPHIDs []string, order string) ([]Task, error)
}
