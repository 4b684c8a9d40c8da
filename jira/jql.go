package jira

import (
	"fmt"
	"strings"
	"time"
)

// Query is a structured issue filter that translates to a JQL string.
// Building the JQL is pure string assembly, so queries can be tested
// without any network access.
type Query struct {
	where []string
	order []string
}

func NewQuery() *Query {
	return &Query{}
}

// AssigneeIs filters to issues assigned to the given email address.
func (q *Query) AssigneeIs(email string) *Query {
	escaped := strings.ReplaceAll(email, `"`, `\"`)
	q.where = append(q.where, fmt.Sprintf(`assignee = "%s"`, escaped))
	return q
}

// AssigneeNotEmpty filters out unassigned issues.
func (q *Query) AssigneeNotEmpty() *Query {
	q.where = append(q.where, "assignee is not EMPTY")
	return q
}

// AssigneeChangedWithin filters to issues whose assignee changed during the
// trailing window, e.g. 3*time.Minute → "assignee changed during (-3m, now())".
func (q *Query) AssigneeChangedWithin(window time.Duration) *Query {
	minutes := int(window.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	q.where = append(q.where, fmt.Sprintf("assignee changed during (-%dm, now())", minutes))
	return q
}

// StatusNot excludes issues in the given status.
func (q *Query) StatusNot(status string) *Query {
	q.where = append(q.where, fmt.Sprintf("status != %s", status))
	return q
}

// DueWithinDays filters to issues due between today and n days from now.
// duedate is a date-only field, so the lower bound is startOfDay() — a
// datetime bound would drop issues due today for most of the day.
func (q *Query) DueWithinDays(n int) *Query {
	q.where = append(q.where, fmt.Sprintf("duedate >= startOfDay() AND duedate <= %dd", n))
	return q
}

// OrderBy appends an ORDER BY clause; dir is "ASC" or "DESC".
func (q *Query) OrderBy(field, dir string) *Query {
	q.order = append(q.order, field+" "+dir)
	return q
}

// JQL renders the query as a JQL string.
func (q *Query) JQL() string {
	jql := strings.Join(q.where, " AND ")
	if len(q.order) > 0 {
		jql += " ORDER BY " + strings.Join(q.order, ", ")
	}
	return jql
}
