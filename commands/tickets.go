package commands

import (
	"fmt"
	"strings"
)

const (
	maxUserIssues   = 10
	shownUserIssues = 5
)

// personalTickets lists the speaker's open issues, newest and most urgent
// first. At most five are shown; the rest are summarized as a count.
func (r *Router) personalTickets(email string) string {
	issues := r.jiraClient.SearchUserOpenIssues(email, maxUserIssues)
	if len(issues) == 0 {
		return "🎉 Você não tem tickets em aberto!"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎯 Seus tickets em aberto (%d):\n", len(issues))

	shown := len(issues)
	if shown > shownUserIssues {
		shown = shownUserIssues
	}
	for _, issue := range issues[:shown] {
		fmt.Fprintf(&sb, "• *%s*: %s _(%s)_\n", issue.Key, issue.Summary, issue.Status)
	}
	if remaining := len(issues) - shown; remaining > 0 {
		fmt.Fprintf(&sb, "\n... e mais %d tickets", remaining)
	}
	return sb.String()
}
