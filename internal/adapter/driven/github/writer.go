package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// CreateComment posts a top-level comment on an issue or pull request.
// A 4xx answer is reported through the result status rather than as an
// error, so the caller treats it as a verification failure and moves on
// instead of retrying.
func (c *Client) CreateComment(ctx context.Context, number int, body string) (model.CommentResult, error) {
	comment, resp, err := c.gh.Issues.CreateComment(ctx, c.owner, c.repo, number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	status, err := resultStatus(resp, err)
	if err != nil {
		return model.CommentResult{}, fmt.Errorf("creating comment on %s#%d: %w", c.FullName(), number, err)
	}

	logRateLimit(resp, c.FullName()+"/comments", 0, 1)

	return model.CommentResult{
		Status: status,
		Comment: model.Comment{
			ID:         comment.GetID(),
			ItemNumber: number,
			Author:     comment.GetUser().GetLogin(),
			Body:       comment.GetBody(),
			URL:        comment.GetHTMLURL(),
			CreatedAt:  comment.GetCreatedAt().Time,
		},
	}, nil
}

// UpdateItemState closes or locks an item. Pull requests are closed through
// the pulls endpoint with their base branch preserved.
func (c *Client) UpdateItemState(ctx context.Context, number int, update model.StateUpdate) (model.UpdateResult, error) {
	if update.Lock {
		return c.lock(ctx, number)
	}
	if update.Kind == model.ItemKindPullRequest {
		return c.editPullRequest(ctx, number, update)
	}
	return c.editIssue(ctx, number, update)
}

func (c *Client) editIssue(ctx context.Context, number int, update model.StateUpdate) (model.UpdateResult, error) {
	req := &gh.IssueRequest{}
	if update.State != "" {
		req.State = gh.Ptr(string(update.State))
	}

	issue, resp, err := c.gh.Issues.Edit(ctx, c.owner, c.repo, number, req)
	status, err := resultStatus(resp, err)
	if err != nil {
		return model.UpdateResult{}, fmt.Errorf("editing issue %s#%d: %w", c.FullName(), number, err)
	}

	logRateLimit(resp, c.FullName()+"/issue-edit", 0, 1)

	// go-github returns no issue alongside a rejected request.
	if issue == nil {
		return model.UpdateResult{Status: status}, nil
	}
	return model.UpdateResult{Status: status, Item: mapIssue(issue)}, nil
}

func (c *Client) editPullRequest(ctx context.Context, number int, update model.StateUpdate) (model.UpdateResult, error) {
	req := &gh.PullRequest{}
	if update.State != "" {
		req.State = gh.Ptr(string(update.State))
	}
	if update.BaseRef != "" {
		req.Base = &gh.PullRequestBranch{Ref: gh.Ptr(update.BaseRef)}
	}

	pr, resp, err := c.gh.PullRequests.Edit(ctx, c.owner, c.repo, number, req)
	status, err := resultStatus(resp, err)
	if err != nil {
		return model.UpdateResult{}, fmt.Errorf("editing pull request %s#%d: %w", c.FullName(), number, err)
	}

	logRateLimit(resp, c.FullName()+"/pr-edit", 0, 1)

	if pr == nil {
		return model.UpdateResult{Status: status}, nil
	}
	return model.UpdateResult{Status: status, Item: mapPullRequest(pr)}, nil
}

// lock answers 204 with no body, so the result carries no snapshot.
func (c *Client) lock(ctx context.Context, number int) (model.UpdateResult, error) {
	resp, err := c.gh.Issues.Lock(ctx, c.owner, c.repo, number, nil)
	status, err := resultStatus(resp, err)
	if err != nil {
		return model.UpdateResult{}, fmt.Errorf("locking %s#%d: %w", c.FullName(), number, err)
	}

	logRateLimit(resp, c.FullName()+"/lock", 0, 1)

	return model.UpdateResult{Status: status}, nil
}

// resultStatus turns a go-github response into the status line the domain
// verifies. Client errors (4xx other than rate limiting, which go-github
// reports with its own error types) become a status; transport failures and
// 5xx stay errors so the caller retries them.
func resultStatus(resp *gh.Response, err error) (model.ResultStatus, error) {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode < http.StatusInternalServerError {
		return statusLine(ghErr.Response.StatusCode), nil
	}
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Response == nil {
		return "", errors.New("empty response")
	}
	return statusLine(resp.StatusCode), nil
}

func statusLine(code int) model.ResultStatus {
	return model.ResultStatus(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}
