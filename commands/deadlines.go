package commands

import (
	"fmt"
	"strings"
	"time"
)

const shownDeadlines = 10

// daysUntil is the naive calendar-date difference between the due date and
// today. Zero means due today; negative values mean overdue and are kept
// as-is — no overdue-specific wording is synthesized. Both dates are pinned
// to UTC midnight so the span is an exact multiple of 24h even when the
// local zone shifts for daylight saving in between.
func daysUntil(dueDate string, now time.Time) (int, bool) {
	due, err := time.Parse("2006-01-02", dueDate)
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24), true
}

// urgencyTag classifies the remaining days: ≤1 critical, ≤3 warning, else
// normal.
func urgencyTag(days int) string {
	switch {
	case days <= 1:
		return "🔴"
	case days <= 3:
		return "🟡"
	default:
		return "🟢"
	}
}

// upcomingDeadlines lists open issues due within the next seven days,
// soonest first.
func (r *Router) upcomingDeadlines() string {
	issues := r.jiraClient.SearchUpcomingDeadlines()
	if len(issues) == 0 {
		return "🎉 Nenhuma entrega prevista para os próximos 7 dias!"
	}

	now := r.now()
	var sb strings.Builder
	sb.WriteString("⏰ *Próximas entregas (7 dias):*\n")

	shown := 0
	for _, issue := range issues {
		if shown == shownDeadlines {
			break
		}
		days, ok := daysUntil(issue.DueDate, now)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s *%s*: %s — %d dia(s) restante(s)\n",
			urgencyTag(days), issue.Key, issue.Summary, days)
		shown++
	}
	if shown == 0 {
		return "🎉 Nenhuma entrega prevista para os próximos 7 dias!"
	}
	return sb.String()
}
