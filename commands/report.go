package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mcamargo/jiraldo/jira"
)

const shownTeamStats = 10

// TeamStat aggregates one assignee's open issues. Built fresh for every
// report request and discarded after the reply is sent.
type TeamStat struct {
	Email      string
	Name       string
	Total      int
	InProgress int
	ToDo       int
	Blocked    int
}

// BuildTeamStats reduces an issue list into per-assignee stats, sorted by
// total descending (email ascending on ties so the order is deterministic).
// Pure — separated from the fetch so it can be tested directly.
func BuildTeamStats(issues []jira.Issue) []TeamStat {
	byEmail := make(map[string]*TeamStat)
	for _, issue := range issues {
		if issue.AssigneeEmail == "" {
			continue
		}
		stat, ok := byEmail[issue.AssigneeEmail]
		if !ok {
			stat = &TeamStat{Email: issue.AssigneeEmail, Name: issue.AssigneeName}
			byEmail[issue.AssigneeEmail] = stat
		}
		stat.Total++
		switch statusBucket(issue.Status) {
		case bucketInProgress:
			stat.InProgress++
		case bucketBlocked:
			stat.Blocked++
		default:
			stat.ToDo++
		}
	}

	stats := make([]TeamStat, 0, len(byEmail))
	for _, s := range byEmail {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Total != stats[j].Total {
			return stats[i].Total > stats[j].Total
		}
		return stats[i].Email < stats[j].Email
	})
	return stats
}

type bucket int

const (
	bucketToDo bucket = iota
	bucketInProgress
	bucketBlocked
)

// Workflows differ per project, so statuses are matched by name in both
// English and Portuguese.
var (
	inProgressStatuses = []string{"in progress", "em andamento", "in review", "em revisão"}
	blockedStatuses    = []string{"blocked", "impedido", "impedimento", "bloqueado"}
)

func statusBucket(status string) bucket {
	s := strings.ToLower(status)
	for _, name := range blockedStatuses {
		if s == name {
			return bucketBlocked
		}
	}
	for _, name := range inProgressStatuses {
		if s == name {
			return bucketInProgress
		}
	}
	return bucketToDo
}

// statFlag marks an assignee's line: blocked work is urgent, more than two
// issues in progress means overloaded, anything else is nominal.
func statFlag(s TeamStat) string {
	switch {
	case s.Blocked > 0:
		return "🚨"
	case s.InProgress > 2:
		return "🔥"
	default:
		return "✅"
	}
}

// teamReport aggregates every open assigned issue and lists the ten busiest
// assignees.
func (r *Router) teamReport() string {
	issues := r.jiraClient.SearchTeamOpenIssues()
	if len(issues) == 0 {
		return "🎉 A equipe não tem tickets em aberto!"
	}

	stats := BuildTeamStats(issues)
	shown := len(stats)
	if shown > shownTeamStats {
		shown = shownTeamStats
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *Relatório da equipe* (%d tickets em aberto):\n", len(issues))
	for _, s := range stats[:shown] {
		fmt.Fprintf(&sb, "%s *%s*: %d tickets (%d em andamento, %d bloqueados)\n",
			statFlag(s), s.Name, s.Total, s.InProgress, s.Blocked)
	}
	return sb.String()
}
