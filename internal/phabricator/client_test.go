package phabricator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conduitOK(result string) string {
	return fmt.Sprintf(`{"result":%s,"error_code":null,"error_info":null}`, result)
}

func TestSourceFetchRevisions(t *testing.T) {
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/differential.revision.search", r.URL.Path)
		require.NoError(t, r.ParseForm())

		gotForm = map[string]string{
			"api.token":                  r.PostFormValue("api.token"),
			"queryKey":                   r.PostFormValue("queryKey"),
			"constraints[modifiedStart]": r.PostFormValue("constraints[modifiedStart]"),
			"attachments[reviewers]":     r.PostFormValue("attachments[reviewers]"),
		}

		fmt.Fprint(w, conduitOK(`{"data":[
			{
				"id": 12,
				"phid": "PHID-DREV-12",
				"fields": {
					"title": "Add rate limiting",
					"authorPHID": "PHID-USER-alice",
					"repositoryPHID": "PHID-REPO-api",
					"status": {"value": "accepted"},
					"isDraft": false,
					"dateModified": 1700000000
				},
				"attachments": {"reviewers": {"reviewers": [
					{"reviewerPHID": "PHID-USER-bob", "status": "accepted", "isBlocking": false},
					{"reviewerPHID": "PHID-USER-carol", "status": "rejected", "isBlocking": false},
					{"reviewerPHID": "PHID-USER-dave", "status": "added", "isBlocking": false}
				]}}
			},
			{
				"id": 13,
				"phid": "PHID-DREV-13",
				"fields": {
					"title": "WIP: refactor storage",
					"authorPHID": "PHID-USER-alice",
					"repositoryPHID": "PHID-REPO-api",
					"status": {"value": "needs-review"},
					"isDraft": false,
					"dateModified": 1700000500
				},
				"attachments": {"reviewers": {"reviewers": []}}
			}
		]}`))
	}))
	defer server.Close()

	source := NewSource(server.URL, "api-token-123")
	cutoff := time.Unix(1699900000, 0)

	revisions, err := source.FetchRevisions(context.Background(), "active", cutoff)
	require.NoError(t, err)

	assert.Equal(t, "api-token-123", gotForm["api.token"])
	assert.Equal(t, "active", gotForm["queryKey"])
	assert.Equal(t, "1699900000", gotForm["constraints[modifiedStart]"])
	assert.Equal(t, "1", gotForm["attachments[reviewers]"])

	require.Len(t, revisions, 2)

	accepted := revisions[0]
	assert.Equal(t, 12, accepted.ID)
	assert.Equal(t, "Add rate limiting", accepted.Title)
	assert.Equal(t, server.URL+"/D12", accepted.URL)
	assert.Equal(t, time.Unix(1700000000, 0), accepted.ModifiedAt)
	assert.True(t, accepted.MeetsAcceptanceCriteria)
	assert.False(t, accepted.IsWIP)
	assert.Equal(t, []string{"PHID-USER-bob", "PHID-USER-carol", "PHID-USER-dave"}, accepted.ReviewerPHIDs)
	assert.Equal(t, []string{"PHID-USER-bob"}, accepted.AcceptorPHIDs)
	assert.Equal(t, []string{"PHID-USER-carol"}, accepted.BlockerPHIDs)

	wip := revisions[1]
	assert.False(t, wip.MeetsAcceptanceCriteria)
	assert.True(t, wip.IsWIP)
}

func TestSourceLookupUsers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/user.search", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "PHID-USER-alice", r.PostFormValue("constraints[phids][0]"))
		assert.Equal(t, "PHID-USER-bob", r.PostFormValue("constraints[phids][1]"))

		fmt.Fprint(w, conduitOK(`{"data":[
			{"id": 1, "phid": "PHID-USER-alice", "fields": {"username": "alice", "realName": "Alice A"}},
			{"id": 2, "phid": "PHID-USER-bob", "fields": {"username": "bob", "realName": "Bob B"}}
		]}`))
	}))
	defer server.Close()

	source := NewSource(server.URL, "token")

	users, err := source.LookupUsers(context.Background(), []string{"PHID-USER-alice", "PHID-USER-bob"})
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, "alice", users["PHID-USER-alice"].Name)
	assert.Equal(t, "bob", users["PHID-USER-bob"].Name)
}

func TestSourceLookupProjectColumns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/project.column.search", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Platform", r.PostFormValue("constraints[projects][0]"))

		fmt.Fprint(w, conduitOK(`{"data":[
			{"id": 1, "phid": "PHID-PCOL-backlog", "fields": {"name": "Backlog"}},
			{"id": 2, "phid": "PHID-PCOL-upnext", "fields": {"name": "Up Next"}},
			{"id": 3, "phid": "PHID-PCOL-done", "fields": {"name": "Done"}}
		]}`))
	}))
	defer server.Close()

	source := NewSource(server.URL, "token")

	columns, err := source.LookupProjectColumns(context.Background(), "Platform", []string{"Up Next", "Backlog"})
	require.NoError(t, err)

	// filtered to the requested names, in requested order
	require.Len(t, columns, 2)
	assert.Equal(t, "PHID-PCOL-upnext", columns[0].PHID)
	assert.Equal(t, "PHID-PCOL-backlog", columns[1].PHID)
}

func TestSourceFetchProjectTasks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/maniphest.search", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Platform", r.PostFormValue("constraints[projects][0]"))
		assert.Equal(t, "PHID-PCOL-upnext", r.PostFormValue("constraints[columnPHIDs][0]"))
		assert.Equal(t, "priority", r.PostFormValue("order"))

		fmt.Fprint(w, conduitOK(`{"data":[
			{"id": 42, "phid": "PHID-TASK-42", "fields": {"name": "Ship the exporter"}}
		]}`))
	}))
	defer server.Close()

	source := NewSource(server.URL, "token")

	tasks, err := source.FetchProjectTasks(context.Background(), "Platform", []string{"PHID-PCOL-upnext"}, "priority")
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.Equal(t, 42, tasks[0].ID)
	assert.Equal(t, "Ship the exporter", tasks[0].Name)
	assert.Equal(t, server.URL+"/T42", tasks[0].URL)
}

func TestClientConduitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null,"error_code":"ERR-INVALID-AUTH","error_info":"API token invalid"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-token")

	err := client.Call(context.Background(), "user.whoami", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR-INVALID-AUTH")
	assert.Contains(t, err.Error(), "API token invalid")
}

func TestClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")

	err := client.Call(context.Background(), "user.whoami", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
