package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// authMode controls how API requests are authenticated.
type authMode string

const (
	authBasic authMode = "basic"
	authOAuth authMode = "oauth"

	// Atlassian OAuth 2.0 endpoints.
	atlassianTokenURL        = "https://auth.atlassian.com/oauth/token"
	atlassianResourcesURL    = "https://api.atlassian.com/oauth/token/accessible-resources"
	atlassianOAuthAPIBaseURL = "https://api.atlassian.com/ex/jira"

	// Every call is bounded; "no response within timeout" is treated the
	// same as a non-success status by the search operations.
	requestTimeout = 30 * time.Second

	// Trailing window for the recently-reassigned search.
	reassignedWindow = 3 * time.Minute
)

// Client provides access to the Jira Cloud REST API v3.
type Client struct {
	baseURL    string // API base URL for REST calls (differs between Basic Auth and OAuth)
	siteURL    string // human-readable site URL (e.g. "https://yourorg.atlassian.net") — used for browse links
	email      string // used for Basic Auth
	apiToken   string // used for Basic Auth
	httpClient *http.Client
	mode       authMode
}

// NewClient creates a Jira API client using Basic Auth (email + API token).
func NewClient(baseURL, email, apiToken string) *Client {
	cleanURL := strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:    cleanURL,
		siteURL:    cleanURL,
		email:      email,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: requestTimeout},
		mode:       authBasic,
	}
}

// NewOAuthClient creates a Jira API client using OAuth 2.0 client credentials.
// Token acquisition and refresh are handled by the oauth2 transport. The
// Atlassian cloud ID is resolved from accessible-resources and the base URL
// rewritten to the OAuth API endpoint.
func NewOAuthClient(baseURL, clientID, clientSecret string) (*Client, error) {
	cleanURL := strings.TrimRight(baseURL, "/")

	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     atlassianTokenURL,
	}
	httpClient := cc.Client(context.Background())
	httpClient.Timeout = requestTimeout

	c := &Client{
		siteURL:    cleanURL,
		httpClient: httpClient,
		mode:       authOAuth,
	}

	cloudID, err := c.resolveCloudID()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Atlassian cloud ID for %s: %w", cleanURL, err)
	}
	c.baseURL = fmt.Sprintf("%s/%s", atlassianOAuthAPIBaseURL, cloudID)
	log.Printf("[jira] OAuth cloud ID resolved: %s → %s", cleanURL, c.baseURL)

	return c, nil
}

// resolveCloudID calls the Atlassian accessible-resources endpoint to find the
// cloud ID matching the configured site URL.
func (c *Client) resolveCloudID() (string, error) {
	req, err := http.NewRequest(http.MethodGet, atlassianResourcesURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("accessible-resources returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var resources []struct {
		ID   string `json:"id"`
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &resources); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(resources) == 0 {
		return "", fmt.Errorf("no accessible Atlassian sites found — ensure the OAuth app is authorized for your site")
	}

	siteNorm := strings.TrimRight(strings.ToLower(c.siteURL), "/")
	for _, r := range resources {
		if strings.TrimRight(strings.ToLower(r.URL), "/") == siteNorm {
			return r.ID, nil
		}
	}

	if len(resources) == 1 {
		log.Printf("[jira] WARN: site URL %q didn't match %q, using the only available site (cloud ID: %s)", c.siteURL, resources[0].URL, resources[0].ID)
		return resources[0].ID, nil
	}

	names := make([]string, len(resources))
	for i, r := range resources {
		names[i] = fmt.Sprintf("%s (%s)", r.URL, r.ID)
	}
	return "", fmt.Errorf("site URL %q not found in accessible resources: %v", c.siteURL, names)
}

// AuthMode returns the authentication mode ("basic" or "oauth").
func (c *Client) AuthMode() string {
	return string(c.mode)
}

// SiteURL returns the human-readable Jira site URL.
func (c *Client) SiteURL() string {
	return c.siteURL
}

// authRequest sets the appropriate authentication headers on a request.
// In OAuth mode the oauth2 transport attaches the bearer token itself.
func (c *Client) authRequest(req *http.Request) {
	if c.mode == authBasic {
		req.SetBasicAuth(c.email, c.apiToken)
	}
}

// Issue represents a Jira issue with the fields the bot cares about.
type Issue struct {
	Key           string `json:"key"`
	Summary       string `json:"summary"`
	Status        string `json:"status"`
	Priority      string `json:"priority,omitempty"`
	AssigneeName  string `json:"assignee,omitempty"`
	AssigneeEmail string `json:"assignee_email,omitempty"`
	DueDate       string `json:"due_date,omitempty"` // "2006-01-02", empty when unset
	Created       string `json:"created,omitempty"`
	Updated       string `json:"updated,omitempty"`
	Browse        string `json:"browse"`
}

// SearchRecentlyReassigned returns issues whose assignee changed within the
// trailing window and that have an assignee, capped at 50. The tracker's
// time-window query is the only dedup mechanism — an issue reassigned twice
// inside the window shows up twice across ticks, which is accepted.
func (c *Client) SearchRecentlyReassigned() []Issue {
	q := NewQuery().AssigneeChangedWithin(reassignedWindow).AssigneeNotEmpty()
	issues, err := c.search(q.JQL(), 50)
	if err != nil {
		log.Printf("[jira] recent assignment search failed: %v", err)
		return nil
	}
	return issues
}

// SearchUserOpenIssues returns open issues assigned to the given email,
// highest priority and newest first. maxResults <= 0 defaults to 10.
func (c *Client) SearchUserOpenIssues(email string, maxResults int) []Issue {
	if maxResults <= 0 {
		maxResults = 10
	}
	q := NewQuery().
		AssigneeIs(email).
		StatusNot("Done").
		OrderBy("priority", "DESC").
		OrderBy("created", "DESC")
	issues, err := c.search(q.JQL(), maxResults)
	if err != nil {
		log.Printf("[jira] user ticket search failed for %s: %v", email, err)
		return nil
	}
	return issues
}

// SearchTeamOpenIssues returns all open assigned issues, capped at 200,
// for team-report aggregation.
func (c *Client) SearchTeamOpenIssues() []Issue {
	q := NewQuery().StatusNot("Done").AssigneeNotEmpty()
	issues, err := c.search(q.JQL(), 200)
	if err != nil {
		log.Printf("[jira] team ticket search failed: %v", err)
		return nil
	}
	return issues
}

// SearchUpcomingDeadlines returns open issues due within the next 7 days,
// soonest first, capped at 20.
func (c *Client) SearchUpcomingDeadlines() []Issue {
	q := NewQuery().
		StatusNot("Done").
		DueWithinDays(7).
		OrderBy("duedate", "ASC")
	issues, err := c.search(q.JQL(), 20)
	if err != nil {
		log.Printf("[jira] deadline search failed: %v", err)
		return nil
	}
	return issues
}

// search executes a JQL query and decodes the result issues in payload order.
func (c *Client) search(jql string, maxResults int) ([]Issue, error) {
	fields := "summary,status,priority,assignee,duedate,created,updated"
	searchURL := fmt.Sprintf("%s/rest/api/3/search/jql?jql=%s&maxResults=%d&fields=%s",
		c.baseURL, url.QueryEscape(jql), maxResults, fields)

	req, err := http.NewRequest(http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jira API error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Issues []struct {
			Key    string          `json:"key"`
			Fields json.RawMessage `json:"fields"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	issues := make([]Issue, 0, len(result.Issues))
	for _, i := range result.Issues {
		var fields struct {
			Summary  string                `json:"summary"`
			Status   struct{ Name string } `json:"status"`
			Priority *struct {
				Name string
			} `json:"priority"`
			Assignee *struct {
				DisplayName  string `json:"displayName"`
				EmailAddress string `json:"emailAddress"`
			} `json:"assignee"`
			DueDate string `json:"duedate"`
			Created string `json:"created"`
			Updated string `json:"updated"`
		}
		_ = json.Unmarshal(i.Fields, &fields)

		priority := ""
		if fields.Priority != nil {
			priority = fields.Priority.Name
		}
		assigneeName, assigneeEmail := "", ""
		if fields.Assignee != nil {
			assigneeName = fields.Assignee.DisplayName
			assigneeEmail = fields.Assignee.EmailAddress
		}

		issues = append(issues, Issue{
			Key:           i.Key,
			Summary:       fields.Summary,
			Status:        fields.Status.Name,
			Priority:      priority,
			AssigneeName:  assigneeName,
			AssigneeEmail: assigneeEmail,
			DueDate:       fields.DueDate,
			Created:       fields.Created,
			Updated:       fields.Updated,
			Browse:        fmt.Sprintf("%s/browse/%s", c.siteURL, i.Key),
		})
	}
	return issues, nil
}

// Myself describes the authenticated Jira user.
type Myself struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// GetMyself fetches the authenticated user, used as a connectivity probe by
// the startup check and the /debug endpoint.
func (c *Client) GetMyself() (*Myself, error) {
	reqURL := fmt.Sprintf("%s/rest/api/3/myself", c.baseURL)
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jira API error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var me Myself
	if err := json.Unmarshal(respBody, &me); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &me, nil
}
