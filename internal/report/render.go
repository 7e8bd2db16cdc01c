package report

import (
	"fmt"
	"strings"
)

// FormatRevision renders one revision as report lines: the numbered
// headline, an optional indented reviewer-status line, and a trailing
// blank line. It is a pure function of the revision and the lookup
// tables so the formatting can be tested without a tracker.
func FormatRevision(rev Revision, seq int, users map[string]User, repos map[string]Repo) ([]string, error) {
	repo, ok := repos[rev.RepoPHID]
	if !ok {
		return nil, fmt.Errorf("repo %s missing from lookup table", rev.RepoPHID)
	}
	author, ok := users[rev.AuthorPHID]
	if !ok {
		return nil, fmt.Errorf("user %s missing from lookup table", rev.AuthorPHID)
	}

	acceptors, err := userNames(rev.AcceptorPHIDs, users)
	if err != nil {
		return nil, err
	}
	blockers, err := userNames(rev.BlockerPHIDs, users)
	if err != nil {
		return nil, err
	}

	lines := []string{
		fmt.Sprintf("%d. _%s_ (<%s|%s>) by `%s` on `%s`",
			seq, rev.Title, rev.URL, rev.DisplayID(), author.Name, repo.ReadableName),
	}

	var reviewersMsg []string
	if len(acceptors) > 0 {
		reviewersMsg = append(reviewersMsg, fmt.Sprintf(":white_check_mark: accepted by %s", strings.Join(acceptors, ", ")))
	}
	if len(blockers) > 0 {
		if len(reviewersMsg) > 0 {
			reviewersMsg = append(reviewersMsg, "; ")
		}
		reviewersMsg = append(reviewersMsg, fmt.Sprintf(":no_entry_sign: blocked by %s", strings.Join(blockers, ", ")))
	}
	if len(reviewersMsg) > 0 {
		lines = append(lines, "    "+strings.Join(reviewersMsg, ""))
	}

	lines = append(lines, "")
	return lines, nil
}

// userNames resolves PHIDs to backtick-quoted display names. A PHID
// absent from the lookup table fails the whole report.
func userNames(phids []string, users map[string]User) ([]string, error) {
	names := make([]string, 0, len(phids))
	for _, phid := range phids {
		user, ok := users[phid]
		if !ok {
			return nil, fmt.Errorf("user %s missing from lookup table", phid)
		}
		names = append(names, "`"+user.Name+"`")
	}
	return names, nil
}
