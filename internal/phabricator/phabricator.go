package phabricator

import (
	"context"
	"strings"
	"time"

	"github.com/Afrawles/phabreport/internal/report"
)

// Revision statuses as differential.revision.search reports them.
const (
	statusAccepted       = "accepted"
	statusDraft          = "draft"
	statusChangesPlanned = "changes-planned"
)

// Reviewer statuses from the reviewers attachment.
const (
	reviewerAccepted = "accepted"
	reviewerRejected = "rejected"
	reviewerBlocking = "blocking"
)

// Source adapts the Conduit client onto the report.Tracker contract,
// mapping wire records to report domain types and deriving the
// review-state booleans.
type Source struct {
	Client *Client
}

func NewSource(baseURL, token string) *Source {
	return &Source{
		Client: NewClient(baseURL, token),
	}
}

var _ report.Tracker = (*Source)(nil)

func (s *Source) Name() string {
	return "Phabricator"
}

func (s *Source) FetchRevisions(ctx context.Context, queryKey string, modifiedAfter time.Time) ([]report.Revision, error) {
	data, err := s.Client.RevisionSearch(ctx, queryKey, modifiedAfter)
	if err != nil {
		return nil, err
	}

	revisions := make([]report.Revision, 0, len(data))
	for _, d := range data {
		rev := report.Revision{
			ID:         d.ID,
			Title:      d.Fields.Title,
			URL:        s.Client.ObjectURL("D", d.ID),
			ModifiedAt: time.Unix(d.Fields.DateModified, 0),
			AuthorPHID: d.Fields.AuthorPHID,
			RepoPHID:   d.Fields.RepositoryPHID,
		}

		for _, reviewer := range d.Attachments.Reviewers.Reviewers {
			rev.ReviewerPHIDs = append(rev.ReviewerPHIDs, reviewer.ReviewerPHID)
			switch reviewer.Status {
			case reviewerAccepted:
				rev.AcceptorPHIDs = append(rev.AcceptorPHIDs, reviewer.ReviewerPHID)
			case reviewerRejected, reviewerBlocking:
				rev.BlockerPHIDs = append(rev.BlockerPHIDs, reviewer.ReviewerPHID)
			}
		}

		rev.MeetsAcceptanceCriteria = d.Fields.Status.Value == statusAccepted
		rev.IsWIP = isWIP(d)

		revisions = append(revisions, rev)
	}

	return revisions, nil
}

// isWIP covers the ways authors mark a revision as not ready: draft
// state, a planned-changes status, or the conventional title prefix.
func isWIP(d revisionData) bool {
	if d.Fields.IsDraft {
		return true
	}
	switch d.Fields.Status.Value {
	case statusDraft, statusChangesPlanned:
		return true
	}
	return strings.HasPrefix(strings.ToUpper(d.Fields.Title), "WIP")
}

func (s *Source) LookupUsers(ctx context.Context, phids []string) (map[string]report.User, error) {
	data, err := s.Client.UserSearch(ctx, phids)
	if err != nil {
		return nil, err
	}

	users := make(map[string]report.User, len(data))
	for _, d := range data {
		users[d.PHID] = report.User{
			PHID: d.PHID,
			Name: d.Fields.Username,
		}
	}
	return users, nil
}

func (s *Source) LookupRepos(ctx context.Context, phids []string) (map[string]report.Repo, error) {
	data, err := s.Client.RepositorySearch(ctx, phids)
	if err != nil {
		return nil, err
	}

	repos := make(map[string]report.Repo, len(data))
	for _, d := range data {
		repos[d.PHID] = report.Repo{
			PHID:         d.PHID,
			ReadableName: d.Fields.Name,
		}
	}
	return repos, nil
}

// LookupProjectColumns lists the project's workboard columns and keeps
// the ones matching the requested names, in requested order.
func (s *Source) LookupProjectColumns(ctx context.Context, projectName string, columnNames []string) ([]report.ProjectColumn, error) {
	data, err := s.Client.ColumnSearch(ctx, projectName)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]columnData, len(data))
	for _, d := range data {
		byName[d.Fields.Name] = d
	}

	var columns []report.ProjectColumn
	for _, name := range columnNames {
		if d, ok := byName[name]; ok {
			columns = append(columns, report.ProjectColumn{
				PHID: d.PHID,
				Name: d.Fields.Name,
			})
		}
	}
	return columns, nil
}

func (s *Source) FetchProjectTasks(ctx context.Context, projectName string, columnPHIDs []string, order string) ([]report.Task, error) {
	data, err := s.Client.ManiphestSearch(ctx, projectName, columnPHIDs, order)
	if err != nil {
		return nil, err
	}

	tasks := make([]report.Task, 0, len(data))
	for _, d := range data {
		tasks = append(tasks, report.Task{
			ID:   d.ID,
			Name: d.Fields.Name,
			URL:  s.Client.ObjectURL("T", d.ID),
		})
	}
	return tasks, nil
}
