package events

import (
	"strings"
	"time"

	"github.com/fyrsmithlabs/issuetracker/internal/issue"
)

// Event is the JSON payload published for one mutation.
type Event struct {
	Type    issue.Op     `json:"type"`
	Project string       `json:"project"`
	IssueID string       `json:"issue_id"`
	Issue   *issue.Issue `json:"issue,omitempty"`
	Seq     uint64       `json:"seq,omitempty"`
	At      time.Time    `json:"at"`
}

// Subject returns the subject an event is published on. An empty project
// or type becomes the token "_".
func Subject(prefix, project string, op issue.Op) string {
	return prefix + "." + token(project) + "." + token(string(op))
}

// SubjectFilter matches events for project, or every project when project
// is empty.
func SubjectFilter(prefix, project string) string {
	if project == "" {
		return prefix + ".>"
	}
	return prefix + "." + token(project) + ".*"
}

// token maps s onto a valid subject token. Separators, wildcards and
// whitespace are replaced with underscores.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
