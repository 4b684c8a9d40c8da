package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mcamargo/jiraldo/commands"
	"github.com/mcamargo/jiraldo/config"
	"github.com/mcamargo/jiraldo/jira"
	"github.com/mcamargo/jiraldo/poller"
	jiraldoslack "github.com/mcamargo/jiraldo/slack"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		log.Printf("WARNING: missing configuration: %s — the affected API calls will fail until set",
			strings.Join(missing, ", "))
	}

	slackClient := jiraldoslack.NewClient(cfg.SlackBotToken)
	jiraClient := newJiraClient(cfg)

	// Startup connectivity probe (informational only).
	if cfg.JiraConfigured() {
		if me, err := jiraClient.GetMyself(); err == nil {
			log.Printf("[jira] connected as %s (%s)", me.DisplayName, me.EmailAddress)
		} else {
			log.Printf("[jira] connectivity check failed: %v", err)
		}
	}

	router := commands.NewRouter(slackClient, jiraClient)
	reply := func(channelID, userID, text, threadTS string) {
		if !slackClient.SendChannelMessage(channelID, router.Handle(channelID, userID, text), threadTS) {
			log.Printf("failed to reply in channel %s", channelID)
		}
	}

	http.Handle("/events", jiraldoslack.NewEventsHandler(cfg.SlackVerificationToken, reply))
	http.Handle("/jiraldo", jiraldoslack.NewSlashHandler(cfg.SlackSigningSecret))
	http.Handle("/debug", debugGuard(cfg.DebugAllowedCIDRs, debugHandler(cfg, jiraClient)))
	http.Handle("/test-user/", debugGuard(cfg.DebugAllowedCIDRs, testUserHandler(cfg, jiraClient)))
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/", homeHandler)

	if cfg.SlackBotToken != "" && cfg.JiraConfigured() {
		p := poller.New(jiraClient, slackClient, cfg.CheckInterval, cfg.NotifyStartHour, cfg.NotifyEndHour)
		go p.Run(context.Background())
	} else {
		log.Printf("WARNING: assignment monitor disabled (credentials incomplete)")
	}

	if cfg.SlackAppToken != "" {
		botUserID, err := slackClient.GetBotUserID()
		if err != nil {
			log.Printf("WARNING: socket mode disabled, auth.test failed: %v", err)
		} else {
			go jiraldoslack.NewSocketListener(cfg.SlackAppToken, cfg.SlackBotToken, botUserID, reply).Start()
		}
	}

	log.Printf("jiraldo server starting on :%s (jira: %s)", cfg.Port, cfg.JiraBaseURL)
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// newJiraClient builds the tracker client for whichever auth mode is
// configured, falling back to Basic Auth when OAuth setup fails so the
// process still starts in degraded mode.
func newJiraClient(cfg *config.Config) *jira.Client {
	if cfg.JiraUseOAuth() {
		client, err := jira.NewOAuthClient(cfg.JiraBaseURL, cfg.JiraClientID, cfg.JiraClientSecret)
		if err == nil {
			return client
		}
		log.Printf("WARNING: Jira OAuth setup failed, falling back to basic auth: %v", err)
	}
	return jira.NewClient(cfg.JiraBaseURL, cfg.JiraEmail, cfg.JiraAPIToken)
}

func homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{
		"message": "🤖 Jiraldo Bot Online!",
		"status":  "running",
		"debug":   "/debug",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":    "ok",
		"jiraldo":   "online",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// debugHandler reports which settings are present and probes Jira
// connectivity. Secrets are never echoed, only their presence.
func debugHandler(cfg *config.Config, jiraClient *jira.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presence := func(set bool) string {
			if set {
				return "✅ configured"
			}
			return "❌ missing"
		}

		payload := map[string]interface{}{
			"timestamp":  time.Now().Format(time.RFC3339),
			"bot_status": "online",
			"auth_mode":  jiraClient.AuthMode(),
			"environment_check": map[string]string{
				"SLACK_BOT_TOKEN": presence(cfg.SlackBotToken != ""),
				"JIRA_EMAIL":      presence(cfg.JiraEmail != ""),
				"JIRA_API_TOKEN":  presence(cfg.JiraAPIToken != ""),
				"JIRA_BASE_URL":   cfg.JiraBaseURL,
				"EMAIL_DOMAIN":    cfg.EmailDomain,
			},
		}

		if cfg.JiraConfigured() {
			if me, err := jiraClient.GetMyself(); err == nil {
				payload["jira_connection"] = map[string]string{
					"status": "✅ connected",
					"user":   me.DisplayName,
					"email":  me.EmailAddress,
				}
			} else {
				payload["jira_connection"] = map[string]string{
					"status": "❌ error",
					"error":  err.Error(),
				}
			}
		} else {
			payload["jira_connection"] = map[string]string{"status": "❌ credentials not configured"}
		}

		writeJSON(w, payload)
	})
}

// testUserHandler is an ad hoc lookup of one user's open issues:
// GET /test-user/<name>, where a bare <name> gets the configured email
// domain appended.
func testUserHandler(cfg *config.Config, jiraClient *jira.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/test-user/")
		if name == "" || strings.Contains(name, "/") {
			http.NotFound(w, r)
			return
		}

		email := name
		if !strings.Contains(email, "@") {
			email += cfg.EmailDomain
		}

		issues := jiraClient.SearchUserOpenIssues(email, 20)
		writeJSON(w, map[string]interface{}{
			"user_email":  email,
			"total_found": len(issues),
			"tickets":     issues,
			"note":        "only issues where the user is the ASSIGNEE are listed",
		})
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
