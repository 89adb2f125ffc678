package github_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ghAdapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/github"
	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) (*ghAdapter.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(
		server.Client(),
		server.URL+"/",
		"owner",
		"repo",
	)
	require.NoError(t, err)

	return client, server
}

// issueJSON is a helper struct for building GitHub API issue responses.
type issueJSON struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	State       string    `json:"state"`
	Locked      bool      `json:"locked"`
	HTMLURL     string    `json:"html_url"`
	Assignee    *userJSON `json:"assignee,omitempty"`
	Labels      []lblJSON `json:"labels"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
	Created     string    `json:"created_at"`
	Updated     string    `json:"updated_at,omitempty"`
}

// prJSON is a helper struct for building GitHub API pull request responses.
type prJSON struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	Base      refJSON   `json:"base"`
	Labels    []lblJSON `json:"labels"`
	Mergeable *bool     `json:"mergeable,omitempty"`
	Created   string    `json:"created_at"`
	Updated   string    `json:"updated_at"`
}

type userJSON struct {
	Login string `json:"login"`
}

type refJSON struct {
	Ref string `json:"ref"`
}

type lblJSON struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func TestListItems_IssuesSinglePage(t *testing.T) {
	issues := []issueJSON{
		{
			Number:   42,
			Title:    "Crash on startup",
			State:    "open",
			HTMLURL:  "https://github.com/owner/repo/issues/42",
			Assignee: &userJSON{Login: "alice"},
			Labels:   []lblJSON{{ID: 1, Name: "bug", Color: "d73a4a"}, {ID: 2, Name: "needs info", Color: "ffffff"}},
			Created:  "2026-01-01T00:00:00Z",
			Updated:  "2026-01-02T12:00:00Z",
		},
		{
			Number:      43,
			Title:       "Add feature X",
			State:       "open",
			PullRequest: &struct{}{},
			Labels:      []lblJSON{},
			Created:     "2026-01-03T00:00:00Z",
		},
	}

	var gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/issues", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(issues)
	})

	client, _ := newTestClient(t, handler)
	page, err := client.ListItems(context.Background(), model.ListQuery{
		Kind:  model.ItemKindIssue,
		State: model.ItemStateOpen,
	})

	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Contains(t, gotQuery, "state=open")
	assert.False(t, page.Cursor.HasNext())

	first := page.Items[0]
	assert.Equal(t, 42, first.Number)
	assert.Equal(t, model.ItemKindIssue, first.Kind)
	assert.Equal(t, "Crash on startup", first.Title)
	assert.Equal(t, model.ItemStateOpen, first.State)
	assert.Equal(t, "alice", first.Assignee)
	assert.True(t, first.IsAssigned())
	assert.Equal(t, []string{"bug", "needs info"}, first.LabelNames())
	assert.Equal(t, int64(1), first.Labels[0].ID)
	assert.Equal(t, "d73a4a", first.Labels[0].Color)
	assert.Equal(t, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC), first.UpdatedAt)

	second := page.Items[1]
	assert.Equal(t, model.ItemKindPullRequest, second.Kind)
	assert.False(t, second.IsAssigned())
	assert.Empty(t, second.Labels)
	assert.True(t, second.UpdatedAt.IsZero())
}

func TestListItems_LockQueryParameters(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "closed", q.Get("state"))
		assert.Equal(t, "created", q.Get("sort"))
		assert.Equal(t, "asc", q.Get("direction"))
		assert.Equal(t, "7", q.Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})

	client, _ := newTestClient(t, handler)
	page, err := client.ListItems(context.Background(), model.ListQuery{
		Kind:      model.ItemKindIssue,
		State:     model.ItemStateClosed,
		Sort:      "created",
		Direction: "asc",
		Page:      7,
	})

	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListItems_Pagination(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")

		w.Header().Set("Content-Type", "application/json")

		if page == "" || page == "1" {
			// Page 1: include Link header pointing to page 2
			w.Header().Set("Link", fmt.Sprintf(`<%s?state=open&page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
			json.NewEncoder(w).Encode([]issueJSON{
				{Number: 1, Title: "One", State: "open", Created: "2026-01-01T00:00:00Z"},
			})
			return
		}

		assert.Equal(t, "open", r.URL.Query().Get("state"))
		json.NewEncoder(w).Encode([]issueJSON{
			{Number: 2, Title: "Two", State: "open", Created: "2026-01-02T00:00:00Z"},
		})
	})

	client, _ := newTestClient(t, handler)
	ctx := context.Background()

	first, err := client.ListItems(ctx, model.ListQuery{Kind: model.ItemKindIssue, State: model.ItemStateOpen})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, 1, first.Items[0].Number)
	require.True(t, first.Cursor.HasNext())

	second, err := client.NextPage(ctx, first.Cursor)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, 2, second.Items[0].Number)
	assert.False(t, second.Cursor.HasNext())

	// An exhausted cursor never reaches the server.
	third, err := client.NextPage(ctx, second.Cursor)
	require.NoError(t, err)
	assert.Empty(t, third.Items)
}

func TestListItems_PullRequests(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/pulls", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]prJSON{
			{
				Number:  7,
				Title:   "Refactor parser",
				State:   "open",
				Base:    refJSON{Ref: "release-1.2"},
				Labels:  []lblJSON{{Name: "refactor"}},
				Created: "2026-01-01T00:00:00Z",
				Updated: "2026-01-05T00:00:00Z",
			},
		})
	})

	client, _ := newTestClient(t, handler)
	page, err := client.ListItems(context.Background(), model.ListQuery{
		Kind:  model.ItemKindPullRequest,
		State: model.ItemStateOpen,
	})

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.ItemKindPullRequest, page.Items[0].Kind)
	assert.Equal(t, "release-1.2", page.Items[0].BaseRef)
	assert.Equal(t, model.MergeableUnknown, page.Items[0].Mergeable)
}

func TestListItems_ServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client, _ := newTestClient(t, handler)
	_, err := client.ListItems(context.Background(), model.ListQuery{Kind: model.ItemKindIssue, State: model.ItemStateOpen})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner/repo")
}

func TestGetPullRequest_Mergeable(t *testing.T) {
	tests := []struct {
		name      string
		mergeable *bool
		want      model.MergeableStatus
	}{
		{"mergeable", boolPtr(true), model.MergeableMergeable},
		{"conflicted", boolPtr(false), model.MergeableConflicted},
		{"not computed yet", nil, model.MergeableUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/owner/repo/pulls/10", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(prJSON{
					Number:    10,
					State:     "open",
					Base:      refJSON{Ref: "main"},
					Mergeable: tt.mergeable,
					Created:   "2026-01-01T00:00:00Z",
					Updated:   "2026-01-01T00:00:00Z",
				})
			})

			client, _ := newTestClient(t, handler)
			item, err := client.GetPullRequest(context.Background(), 10)

			require.NoError(t, err)
			assert.Equal(t, 10, item.Number)
			assert.Equal(t, "main", item.BaseRef)
			assert.Equal(t, tt.want, item.Mergeable)
		})
	}
}

func TestCreateComment_Created(t *testing.T) {
	var gotBody map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/owner/repo/issues/42/comments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 900, "body": "Closing as stale.", "html_url": "https://github.com/owner/repo/issues/42#issuecomment-900",
			"user": {"login": "triagebot"}, "created_at": "2026-02-01T00:00:00Z"}`))
	})

	client, _ := newTestClient(t, handler)
	res, err := client.CreateComment(context.Background(), 42, "Closing as stale.")

	require.NoError(t, err)
	assert.Equal(t, "Closing as stale.", gotBody["body"])
	assert.Equal(t, model.StatusCreated, res.Status)
	assert.Equal(t, int64(900), res.Comment.ID)
	assert.Equal(t, 42, res.Comment.ItemNumber)
	assert.Equal(t, "triagebot", res.Comment.Author)
	assert.Equal(t, "Closing as stale.", res.Comment.Body)
}

func TestCreateComment_ClientErrorIsStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "Resource not accessible by integration"}`))
	})

	client, _ := newTestClient(t, handler)
	res, err := client.CreateComment(context.Background(), 42, "hi")

	require.NoError(t, err)
	assert.Equal(t, model.ResultStatus("403 Forbidden"), res.Status)
	assert.NotEqual(t, model.ExpectedStatus(model.ActionComment), res.Status)
}

func TestCreateComment_ServerErrorIsError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, handler)
	_, err := client.CreateComment(context.Background(), 42, "hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner/repo#42")
}

func TestUpdateItemState_CloseIssue(t *testing.T) {
	var gotBody map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/owner/repo/issues/42", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(issueJSON{
			Number:  42,
			State:   "closed",
			Labels:  []lblJSON{{Name: "bug"}},
			Created: "2026-01-01T00:00:00Z",
			Updated: "2026-02-01T00:00:00Z",
		})
	})

	client, _ := newTestClient(t, handler)
	res, err := client.UpdateItemState(context.Background(), 42, model.StateUpdate{
		Kind:  model.ItemKindIssue,
		State: model.ItemStateClosed,
	})

	require.NoError(t, err)
	assert.Equal(t, "closed", gotBody["state"])
	assert.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, model.ItemStateClosed, res.Item.State)
	assert.Equal(t, 42, res.Item.Number)
}

func TestUpdateItemState_ClosePullRequestKeepsBase(t *testing.T) {
	var gotBody map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/owner/repo/pulls/7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(prJSON{
			Number:  7,
			State:   "closed",
			Base:    refJSON{Ref: "release-1.2"},
			Created: "2026-01-01T00:00:00Z",
			Updated: "2026-02-01T00:00:00Z",
		})
	})

	client, _ := newTestClient(t, handler)
	res, err := client.UpdateItemState(context.Background(), 7, model.StateUpdate{
		Kind:    model.ItemKindPullRequest,
		State:   model.ItemStateClosed,
		BaseRef: "release-1.2",
	})

	require.NoError(t, err)
	assert.Equal(t, "closed", gotBody["state"])
	assert.Equal(t, "release-1.2", gotBody["base"])
	assert.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, "release-1.2", res.Item.BaseRef)
}

func TestUpdateItemState_Lock(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/repos/owner/repo/issues/5/lock", r.URL.Path)
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, handler)
	res, err := client.UpdateItemState(context.Background(), 5, model.StateUpdate{
		Kind: model.ItemKindIssue,
		Lock: true,
	})

	require.NoError(t, err)
	assert.Equal(t, model.StatusNoContent, res.Status)
	assert.Zero(t, res.Item, "locks return no snapshot")
}

func TestUpdateItemState_LockNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	})

	client, _ := newTestClient(t, handler)
	res, err := client.UpdateItemState(context.Background(), 5, model.StateUpdate{Lock: true})

	require.NoError(t, err)
	assert.Equal(t, model.ResultStatus("404 Not Found"), res.Status)
	assert.False(t, res.Item.Locked)
}

func TestUpdateItemState_CloseIssueClientError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/owner/repo/issues/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "Validation Failed"}`))
	})

	client, _ := newTestClient(t, handler)
	var res model.UpdateResult
	var err error
	require.NotPanics(t, func() {
		res, err = client.UpdateItemState(context.Background(), 42, model.StateUpdate{
			Kind:  model.ItemKindIssue,
			State: model.ItemStateClosed,
		})
	})

	require.NoError(t, err)
	assert.Equal(t, model.ResultStatus("422 Unprocessable Entity"), res.Status)
	assert.Zero(t, res.Item)
}

func TestUpdateItemState_ClosePullRequestClientError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/owner/repo/pulls/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "Resource not accessible by integration"}`))
	})

	client, _ := newTestClient(t, handler)
	var res model.UpdateResult
	var err error
	require.NotPanics(t, func() {
		res, err = client.UpdateItemState(context.Background(), 7, model.StateUpdate{
			Kind:    model.ItemKindPullRequest,
			State:   model.ItemStateClosed,
			BaseRef: "main",
		})
	})

	require.NoError(t, err)
	assert.Equal(t, model.ResultStatus("403 Forbidden"), res.Status)
	assert.Zero(t, res.Item)
}

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestListItems_RateLimitWarning(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		wantWarn bool
	}{
		{name: "no rate headers", wantWarn: false},
		{
			name: "plenty remaining",
			headers: map[string]string{
				"X-RateLimit-Limit":     "5000",
				"X-RateLimit-Remaining": "4000",
				"X-RateLimit-Reset":     "1772370000",
			},
			wantWarn: false,
		},
		{
			name: "nearly exhausted",
			headers: map[string]string{
				"X-RateLimit-Limit":     "5000",
				"X-RateLimit-Remaining": "42",
				"X-RateLimit-Reset":     "1772370000",
			},
			wantWarn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`[]`))
			})

			client, _ := newTestClient(t, handler)
			_, err := client.ListItems(context.Background(), model.ListQuery{Kind: model.ItemKindIssue, State: model.ItemStateOpen})

			require.NoError(t, err)
			if tt.wantWarn {
				assert.Contains(t, logs.String(), "github rate limit low")
				assert.Contains(t, logs.String(), "remaining=42")
			} else {
				assert.NotContains(t, logs.String(), "github rate limit low")
			}
		})
	}
}

func TestSplitRepo(t *testing.T) {
	owner, repo, err := ghAdapter.SplitRepo("octo/widgets")
	require.NoError(t, err)
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "widgets", repo)

	for _, bad := range []string{"", "octo", "/widgets", "octo/"} {
		_, _, err := ghAdapter.SplitRepo(bad)
		assert.Error(t, err, bad)
	}
}

func boolPtr(b bool) *bool { return &b }
