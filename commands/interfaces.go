package commands

import (
	slacklib "github.com/slack-go/slack"

	"github.com/mcamargo/jiraldo/jira"
)

type JiraClient interface {
	SearchUserOpenIssues(email string, maxResults int) []jira.Issue
	SearchTeamOpenIssues() []jira.Issue
	SearchUpcomingDeadlines() []jira.Issue
}

type SlackClient interface {
	ResolveUserByID(userID string) (*slacklib.User, error)
}
