package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SLACK_BOT_TOKEN", "SLACK_SIGNING_SECRET", "SLACK_APP_TOKEN",
		"SLACK_VERIFICATION_TOKEN", "JIRA_BASE_URL", "JIRA_EMAIL",
		"JIRA_API_TOKEN", "JIRA_CLIENT_ID", "JIRA_CLIENT_SECRET",
		"EMAIL_DOMAIN", "PORT", "DEBUG_ALLOWED_CIDRS", "JIRALDO_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "https://ifood.atlassian.net", cfg.JiraBaseURL)
	assert.Equal(t, "@ifood.com.br", cfg.EmailDomain)
	assert.Equal(t, 2*time.Minute, cfg.CheckInterval)
	assert.Equal(t, 8, cfg.NotifyStartHour)
	assert.Equal(t, 18, cfg.NotifyEndHour)
}

func TestLoadMissingIsNotFatal(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err, "missing credentials only degrade, never abort startup")

	missing := cfg.Missing()
	assert.Contains(t, missing, "SLACK_BOT_TOKEN")
	assert.Contains(t, missing, "JIRA_EMAIL")
	assert.Contains(t, missing, "JIRA_API_TOKEN")
	assert.False(t, cfg.JiraConfigured())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("JIRA_EMAIL", "bot@example.com")
	t.Setenv("JIRA_API_TOKEN", "tok")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Missing())
	assert.True(t, cfg.JiraConfigured())
	assert.False(t, cfg.JiraUseOAuth())
	assert.Equal(t, "9000", cfg.Port)
}

func TestOAuthCredentialsSatisfyJira(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("JIRA_CLIENT_ID", "cid")
	t.Setenv("JIRA_CLIENT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.JiraUseOAuth())
	assert.True(t, cfg.JiraConfigured())
	assert.Empty(t, cfg.Missing())
}

func TestConfigFileOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLACK_BOT_TOKEN", "from-env")
	t.Setenv("JIRA_EMAIL", "env@example.com")

	path := filepath.Join(t.TempDir(), "jiraldo.yaml")
	data := "slack_bot_token: from-file\nport: \"8088\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("JIRALDO_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.SlackBotToken)
	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, "env@example.com", cfg.JiraEmail, "unset file keys keep the env value")
}

func TestConfigFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("JIRALDO_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
