// Package github implements the Tracker port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Tracker = (*Client)(nil)

// DefaultRequestTimeout bounds every request made through NewClient.
const DefaultRequestTimeout = 5 * time.Second

// Client implements the driven.Tracker port for a single repository.
type Client struct {
	gh    *gh.Client
	owner string
	repo  string
}

// NewClient creates a GitHub API client for owner/repo with the following
// transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// timeout applies to every request; zero selects DefaultRequestTimeout.
func NewClient(token, owner, repo string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	rateLimitClient.Timeout = timeout
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:    client,
		owner: owner,
		repo:  repo,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, owner, repo string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:    client,
		owner: owner,
		repo:  repo,
	}, nil
}

// FullName returns "owner/repo".
func (c *Client) FullName() string {
	return c.owner + "/" + c.repo
}

// ListItems fetches one page of issues or pull requests. Issue listings
// include pull requests, as the GitHub issues endpoint does; each item
// records its kind.
func (c *Client) ListItems(ctx context.Context, query model.ListQuery) (model.Page, error) {
	if query.Kind == model.ItemKindPullRequest {
		return c.listPullRequests(ctx, query)
	}
	return c.listIssues(ctx, query)
}

// NextPage fetches the page the cursor points at. An exhausted cursor yields
// an empty page.
func (c *Client) NextPage(ctx context.Context, cursor model.Cursor) (model.Page, error) {
	if !cursor.HasNext() {
		return model.Page{}, nil
	}
	return c.ListItems(ctx, cursor.NextQuery())
}

func (c *Client) listIssues(ctx context.Context, query model.ListQuery) (model.Page, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       string(query.State),
		Sort:        query.Sort,
		Direction:   query.Direction,
		ListOptions: gh.ListOptions{Page: query.Page},
	}

	issues, resp, err := c.gh.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
	if err != nil {
		return model.Page{}, fmt.Errorf("listing %s issues for %s (page %d): %w", query.State, c.FullName(), query.Page, err)
	}

	logRateLimit(resp, c.FullName()+"/issues", query.Page, len(issues))

	items := make([]model.Item, 0, len(issues))
	for _, issue := range issues {
		items = append(items, mapIssue(issue))
	}

	return model.Page{Items: items, Cursor: model.NewCursor(query, resp.NextPage)}, nil
}

func (c *Client) listPullRequests(ctx context.Context, query model.ListQuery) (model.Page, error) {
	opts := &gh.PullRequestListOptions{
		State:       string(query.State),
		Sort:        query.Sort,
		Direction:   query.Direction,
		ListOptions: gh.ListOptions{Page: query.Page},
	}

	prs, resp, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, opts)
	if err != nil {
		return model.Page{}, fmt.Errorf("listing %s pull requests for %s (page %d): %w", query.State, c.FullName(), query.Page, err)
	}

	logRateLimit(resp, c.FullName()+"/pulls", query.Page, len(prs))

	items := make([]model.Item, 0, len(prs))
	for _, pr := range prs {
		items = append(items, mapPullRequest(pr))
	}

	return model.Page{Items: items, Cursor: model.NewCursor(query, resp.NextPage)}, nil
}

// GetPullRequest returns a single pull request including its mergeable status,
// which list payloads never carry.
func (c *Client) GetPullRequest(ctx context.Context, number int) (model.Item, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return model.Item{}, fmt.Errorf("fetching pull request %s#%d: %w", c.FullName(), number, err)
	}

	logRateLimit(resp, c.FullName()+"/pr-detail", 0, 1)

	return mapPullRequest(pr), nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	// Responses without rate headers report a zero limit.
	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapIssue converts a go-github Issue to a domain model Item.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapIssue(issue *gh.Issue) model.Item {
	kind := model.ItemKindIssue
	if issue.IsPullRequest() {
		kind = model.ItemKindPullRequest
	}

	return model.Item{
		Number:    issue.GetNumber(),
		Kind:      kind,
		Title:     issue.GetTitle(),
		URL:       issue.GetHTMLURL(),
		State:     model.ItemState(issue.GetState()),
		Locked:    issue.GetLocked(),
		Assignee:  issue.GetAssignee().GetLogin(),
		Labels:    mapLabels(issue.Labels),
		Mergeable: model.MergeableUnknown,
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
	}
}

// mapPullRequest converts a go-github PullRequest to a domain model Item.
func mapPullRequest(pr *gh.PullRequest) model.Item {
	return model.Item{
		Number:    pr.GetNumber(),
		Kind:      model.ItemKindPullRequest,
		Title:     pr.GetTitle(),
		URL:       pr.GetHTMLURL(),
		State:     model.ItemState(pr.GetState()),
		Locked:    pr.GetLocked(),
		Assignee:  pr.GetAssignee().GetLogin(),
		Labels:    mapLabels(pr.Labels),
		BaseRef:   pr.GetBase().GetRef(),
		Mergeable: mapMergeable(pr.Mergeable),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
}

func mapLabels(labels []*gh.Label) []model.Label {
	out := make([]model.Label, 0, len(labels))
	for _, l := range labels {
		out = append(out, model.Label{
			ID:    l.GetID(),
			Name:  l.GetName(),
			Color: l.GetColor(),
		})
	}
	return out
}

// mapMergeable converts a *bool (GitHub's tri-state mergeable field) to a MergeableStatus.
// nil means GitHub hasn't computed it yet; true means mergeable; false means conflicted.
func mapMergeable(mergeable *bool) model.MergeableStatus {
	if mergeable == nil {
		return model.MergeableUnknown
	}
	if *mergeable {
		return model.MergeableMergeable
	}
	return model.MergeableConflicted
}

// SplitRepo splits a "owner/repo" string into its two components.
func SplitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
