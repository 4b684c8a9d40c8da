package poller

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	slacklib "github.com/slack-go/slack"

	"github.com/mcamargo/jiraldo/jira"
)

type JiraClient interface {
	SearchRecentlyReassigned() []jira.Issue
}

type SlackClient interface {
	SendDirectMessage(email, text string, attachment *slacklib.Attachment) bool
}

// Poller is the background assignment monitor: on each tick inside the
// notification window it fetches recently reassigned issues and DMs each
// assignee. The tracker's trailing time-window query is the only dedup
// mechanism, so an issue reassigned twice within the window may notify twice.
type Poller struct {
	jiraClient  JiraClient
	slackClient SlackClient
	interval    time.Duration
	startHour   int // inclusive
	endHour     int // inclusive
	now         func() time.Time
}

func New(jiraClient JiraClient, slackClient SlackClient, interval time.Duration, startHour, endHour int) *Poller {
	return &Poller{
		jiraClient:  jiraClient,
		slackClient: slackClient,
		interval:    interval,
		startHour:   startHour,
		endHour:     endHour,
		now:         time.Now,
	}
}

// Run ticks until ctx is cancelled. Ticks never overlap: the next one is
// scheduled only after the current one returns, so a slow tracker or chat
// API stretches the cycle instead of stacking work.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("[poller] assignment monitor started (every %s, window %02dh-%02dh)",
		p.interval, p.startHour, p.endHour)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[poller] stopped: %v", ctx.Err())
			return
		case <-timer.C:
			p.tick()
			timer.Reset(p.interval)
		}
	}
}

func (p *Poller) tick() {
	hour := p.now().Hour()
	if hour < p.startHour || hour > p.endHour {
		return
	}

	issues := p.jiraClient.SearchRecentlyReassigned()
	if len(issues) == 0 {
		return
	}

	sent := 0
	for _, issue := range issues {
		if issue.AssigneeEmail == "" {
			continue
		}
		if p.notify(issue) {
			sent++
		}
	}
	log.Printf("[poller] processed %d reassignments, %d notified", len(issues), sent)
}

func (p *Poller) notify(issue jira.Issue) bool {
	attachment := &slacklib.Attachment{
		Color: "good",
		Fields: []slacklib.AttachmentField{
			{Title: "Ticket", Value: issue.Key, Short: true},
			{Title: "Prioridade", Value: issue.Priority, Short: true},
			{Title: "Título", Value: issue.Summary, Short: false},
		},
		Actions: []slacklib.AttachmentAction{
			{Type: "button", Text: "🔗 Abrir no Jira", URL: issue.Browse},
		},
		Footer: "Jiraldo Bot",
		Ts:     json.Number(strconv.FormatInt(p.now().Unix(), 10)),
	}

	ok := p.slackClient.SendDirectMessage(issue.AssigneeEmail, "🎯 Novo ticket atribuído para você!", attachment)
	if ok {
		log.Printf("[poller] notified %s about %s", issue.AssigneeEmail, issue.Key)
	} else {
		log.Printf("[poller] failed to notify %s about %s", issue.AssigneeEmail, issue.Key)
	}
	return ok
}
