package jira

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIssue struct {
	key      string
	summary  string
	status   string
	priority string
	assignee string
	email    string
	dueDate  string
}

func searchPayload(issues ...fakeIssue) []byte {
	type entry struct {
		Key    string                 `json:"key"`
		Fields map[string]interface{} `json:"fields"`
	}
	entries := make([]entry, 0, len(issues))
	for _, i := range issues {
		fields := map[string]interface{}{
			"summary": i.summary,
			"status":  map[string]string{"name": i.status},
		}
		if i.priority != "" {
			fields["priority"] = map[string]string{"name": i.priority}
		}
		if i.assignee != "" {
			fields["assignee"] = map[string]string{
				"displayName":  i.assignee,
				"emailAddress": i.email,
			}
		}
		if i.dueDate != "" {
			fields["duedate"] = i.dueDate
		}
		entries = append(entries, entry{Key: i.key, Fields: fields})
	}
	body, _ := json.Marshal(map[string]interface{}{"issues": entries})
	return body
}

func TestSearchUserOpenIssuesPreservesPayloadOrder(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write(searchPayload(
			fakeIssue{key: "ENG-3", summary: "Fix login", status: "In Progress", priority: "High", assignee: "Alice", email: "alice@example.com"},
			fakeIssue{key: "ENG-1", summary: "Update docs", status: "To Do", priority: "Low", assignee: "Alice", email: "alice@example.com"},
		))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bot@example.com", "token")
	issues := c.SearchUserOpenIssues("alice@example.com", 10)

	require.Len(t, issues, 2)
	assert.Equal(t, "ENG-3", issues[0].Key)
	assert.Equal(t, "ENG-1", issues[1].Key)
	assert.Equal(t, "Fix login", issues[0].Summary)
	assert.Equal(t, "In Progress", issues[0].Status)
	assert.Equal(t, "High", issues[0].Priority)
	assert.Equal(t, "Alice", issues[0].AssigneeName)
	assert.Equal(t, "alice@example.com", issues[0].AssigneeEmail)
	assert.Equal(t, srv.URL+"/browse/ENG-3", issues[0].Browse)

	assert.Equal(t, "/rest/api/3/search/jql", gotPath)
	assert.Contains(t, gotAuth, "Basic ")
}

func TestSearchSendsJQLAndCap(t *testing.T) {
	var gotJQL, gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotJQL = r.URL.Query().Get("jql")
		gotMax = r.URL.Query().Get("maxResults")
		_, _ = w.Write(searchPayload())
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bot@example.com", "token")
	c.SearchUserOpenIssues("alice@example.com", 0) // defaults to 10

	assert.Equal(t, `assignee = "alice@example.com" AND status != Done ORDER BY priority DESC, created DESC`, gotJQL)
	assert.Equal(t, "10", gotMax)
}

func TestSearchReturnsEmptyOnNonSuccessStatus(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		t.Run(fmt.Sprintf("status_%d", code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", code)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "bot@example.com", "token")
			assert.Empty(t, c.SearchUserOpenIssues("alice@example.com", 10))
			assert.Empty(t, c.SearchRecentlyReassigned())
			assert.Empty(t, c.SearchTeamOpenIssues())
			assert.Empty(t, c.SearchUpcomingDeadlines())
		})
	}
}

func TestSearchReturnsEmptyOnTransportError(t *testing.T) {
	// Nothing listens here; the connection is refused.
	c := NewClient("http://127.0.0.1:1", "bot@example.com", "token")
	assert.Empty(t, c.SearchUserOpenIssues("alice@example.com", 10))
	assert.Empty(t, c.SearchRecentlyReassigned())
}

func TestSearchRecentlyReassignedQuery(t *testing.T) {
	var gotJQL, gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotJQL = r.URL.Query().Get("jql")
		gotMax = r.URL.Query().Get("maxResults")
		_, _ = w.Write(searchPayload(
			fakeIssue{key: "ENG-7", summary: "New work", status: "To Do", priority: "Medium", assignee: "Bob", email: "bob@example.com"},
		))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bot@example.com", "token")
	issues := c.SearchRecentlyReassigned()

	require.Len(t, issues, 1)
	assert.Equal(t, "bob@example.com", issues[0].AssigneeEmail)
	assert.Equal(t, "assignee changed during (-3m, now()) AND assignee is not EMPTY", gotJQL)
	assert.Equal(t, "50", gotMax)
}

func TestGetMyself(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/myself", r.URL.Path)
		_, _ = w.Write([]byte(`{"accountId":"abc123","displayName":"Jiraldo Bot","emailAddress":"bot@example.com"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bot@example.com", "token")
	me, err := c.GetMyself()
	require.NoError(t, err)
	assert.Equal(t, "Jiraldo Bot", me.DisplayName)
	assert.Equal(t, "bot@example.com", me.EmailAddress)
}

func TestGetMyselfSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bot@example.com", "token")
	_, err := c.GetMyself()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestIssueWithoutOptionalFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(searchPayload(fakeIssue{key: "ENG-9", summary: "Unassigned", status: "To Do"}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bot@example.com", "token")
	issues := c.SearchTeamOpenIssues()

	require.Len(t, issues, 1)
	assert.Empty(t, issues[0].Priority)
	assert.Empty(t, issues[0].AssigneeName)
	assert.Empty(t, issues[0].AssigneeEmail)
	assert.Empty(t, issues[0].DueDate)
}
