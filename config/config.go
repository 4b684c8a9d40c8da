package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort        = "5000"
	defaultJiraBaseURL = "https://ifood.atlassian.net"
	defaultEmailDomain = "@ifood.com.br"

	// How often the poller checks for new assignments and the local-time
	// window (inclusive hours) during which it is allowed to notify.
	defaultCheckInterval   = 2 * time.Minute
	defaultNotifyStartHour = 8
	defaultNotifyEndHour   = 18
)

type Config struct {
	SlackBotToken          string
	SlackSigningSecret     string
	SlackAppToken          string
	SlackVerificationToken string
	JiraBaseURL            string
	JiraEmail              string
	JiraAPIToken           string
	JiraClientID           string
	JiraClientSecret       string
	EmailDomain            string
	Port                   string
	DebugAllowedCIDRs      string

	CheckInterval   time.Duration
	NotifyStartHour int
	NotifyEndHour   int
}

// fileConfig mirrors the optional YAML override file. Any non-empty value
// takes precedence over the corresponding environment variable.
type fileConfig struct {
	SlackBotToken          string `yaml:"slack_bot_token"`
	SlackSigningSecret     string `yaml:"slack_signing_secret"`
	SlackAppToken          string `yaml:"slack_app_token"`
	SlackVerificationToken string `yaml:"slack_verification_token"`
	JiraBaseURL            string `yaml:"jira_base_url"`
	JiraEmail              string `yaml:"jira_email"`
	JiraAPIToken           string `yaml:"jira_api_token"`
	JiraClientID           string `yaml:"jira_client_id"`
	JiraClientSecret       string `yaml:"jira_client_secret"`
	EmailDomain            string `yaml:"email_domain"`
	Port                   string `yaml:"port"`
	DebugAllowedCIDRs      string `yaml:"debug_allowed_cidrs"`
}

// JiraConfigured returns true when Jira credentials are present.
// Supports both Basic Auth (email + API token) and OAuth 2.0 (client ID + secret).
func (c *Config) JiraConfigured() bool {
	return (c.JiraEmail != "" && c.JiraAPIToken != "") || c.JiraUseOAuth()
}

// JiraUseOAuth returns true when OAuth 2.0 client credentials are configured.
func (c *Config) JiraUseOAuth() bool {
	return c.JiraClientID != "" && c.JiraClientSecret != ""
}

// Missing lists required settings that are absent. The caller logs these but
// keeps running — the bot starts in degraded mode and the affected API calls
// fail per-request.
func (c *Config) Missing() []string {
	var missing []string
	if c.SlackBotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if !c.JiraUseOAuth() {
		if c.JiraEmail == "" {
			missing = append(missing, "JIRA_EMAIL")
		}
		if c.JiraAPIToken == "" {
			missing = append(missing, "JIRA_API_TOKEN")
		}
	}
	return missing
}

func Load() (*Config, error) {
	cfg := &Config{
		SlackBotToken:          os.Getenv("SLACK_BOT_TOKEN"),
		SlackSigningSecret:     os.Getenv("SLACK_SIGNING_SECRET"),
		SlackAppToken:          os.Getenv("SLACK_APP_TOKEN"),
		SlackVerificationToken: os.Getenv("SLACK_VERIFICATION_TOKEN"),
		JiraBaseURL:            os.Getenv("JIRA_BASE_URL"),
		JiraEmail:              os.Getenv("JIRA_EMAIL"),
		JiraAPIToken:           os.Getenv("JIRA_API_TOKEN"),
		JiraClientID:           os.Getenv("JIRA_CLIENT_ID"),
		JiraClientSecret:       os.Getenv("JIRA_CLIENT_SECRET"),
		EmailDomain:            os.Getenv("EMAIL_DOMAIN"),
		Port:                   os.Getenv("PORT"),
		DebugAllowedCIDRs:      os.Getenv("DEBUG_ALLOWED_CIDRS"),

		CheckInterval:   defaultCheckInterval,
		NotifyStartHour: defaultNotifyStartHour,
		NotifyEndHour:   defaultNotifyEndHour,
	}

	if path := os.Getenv("JIRALDO_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.JiraBaseURL == "" {
		cfg.JiraBaseURL = defaultJiraBaseURL
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = defaultEmailDomain
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	overrides := []struct {
		val string
		dst *string
	}{
		{fc.SlackBotToken, &c.SlackBotToken},
		{fc.SlackSigningSecret, &c.SlackSigningSecret},
		{fc.SlackAppToken, &c.SlackAppToken},
		{fc.SlackVerificationToken, &c.SlackVerificationToken},
		{fc.JiraBaseURL, &c.JiraBaseURL},
		{fc.JiraEmail, &c.JiraEmail},
		{fc.JiraAPIToken, &c.JiraAPIToken},
		{fc.JiraClientID, &c.JiraClientID},
		{fc.JiraClientSecret, &c.JiraClientSecret},
		{fc.EmailDomain, &c.EmailDomain},
		{fc.Port, &c.Port},
		{fc.DebugAllowedCIDRs, &c.DebugAllowedCIDRs},
	}
	for _, o := range overrides {
		if o.val != "" {
			*o.dst = o.val
		}
	}
	return nil
}
