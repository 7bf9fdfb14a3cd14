package github

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/chronicle-dev/chronicle/internal/errors"
	"github.com/chronicle-dev/chronicle/internal/models"
)

// Client wraps the GitHub API client with rate limiting. It serves the four
// artifact kinds the matcher understands: issues, PRs, milestones, projects.
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	owner       string
	repo        string
}

// NewClient creates a GitHub artifact client with rate limiting.
func NewClient(token, owner, repo string, rateLimit int) *Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if rateLimit <= 0 {
		rateLimit = 1
	}

	return &Client{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		owner:       owner,
		repo:        repo,
	}
}

// ListArtifacts fetches the current artifacts of one kind. Network failures
// and rate-limit errors are transient; the caller decides retry policy.
func (c *Client) ListArtifacts(ctx context.Context, kind models.ArtifactKind) ([]models.Artifact, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	switch kind {
	case models.ArtifactIssue:
		return c.listIssues(ctx)
	case models.ArtifactPullRequest:
		return c.listPullRequests(ctx)
	case models.ArtifactMilestone:
		return c.listMilestones(ctx)
	case models.ArtifactProject:
		return c.listProjects(ctx)
	default:
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// ListAll fetches every artifact kind concurrently, one worker per kind.
func (c *Client) ListAll(ctx context.Context) (map[models.ArtifactKind][]models.Artifact, error) {
	results := make([][]models.Artifact, len(models.AllArtifactKinds))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range models.AllArtifactKinds {
		i, kind := i, kind
		g.Go(func() error {
			artifacts, err := c.ListArtifacts(ctx, kind)
			if err != nil {
				return err
			}
			results[i] = artifacts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byKind := make(map[models.ArtifactKind][]models.Artifact, len(models.AllArtifactKinds))
	for i, kind := range models.AllArtifactKinds {
		byKind[kind] = results[i]
	}
	return byKind, nil
}

func (c *Client) listIssues(ctx context.Context) ([]models.Artifact, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var artifacts []models.Artifact
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.TransientError(err, "rate limiter wait")
		}

		issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, errors.TransientErrorf(err, "list issues for %s/%s", c.owner, c.repo)
		}

		for _, issue := range issues {
			// The issues API also returns PRs; those come from listPullRequests
			if issue.IsPullRequest() {
				continue
			}
			a := models.Artifact{
				Kind:      models.ArtifactIssue,
				ID:        issue.GetNumber(),
				Title:     issue.GetTitle(),
				Body:      issue.GetBody(),
				CreatedAt: issue.GetCreatedAt().Time,
				UpdatedAt: issue.GetUpdatedAt().Time,
			}
			if t := issue.GetClosedAt(); !t.IsZero() {
				closed := t.Time
				a.ClosedAt = &closed
			}
			for _, label := range issue.Labels {
				a.Labels = append(a.Labels, label.GetName())
			}
			artifacts = append(artifacts, a)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return artifacts, nil
}

func (c *Client) listPullRequests(ctx context.Context) ([]models.Artifact, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var artifacts []models.Artifact
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.TransientError(err, "rate limiter wait")
		}

		prs, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, errors.TransientErrorf(err, "list pull requests for %s/%s", c.owner, c.repo)
		}

		for _, pr := range prs {
			a := models.Artifact{
				Kind:         models.ArtifactPullRequest,
				ID:           pr.GetNumber(),
				Title:        pr.GetTitle(),
				Body:         pr.GetBody(),
				SourceBranch: pr.GetHead().GetRef(),
				CreatedAt:    pr.GetCreatedAt().Time,
				UpdatedAt:    pr.GetUpdatedAt().Time,
			}
			if t := pr.GetClosedAt(); !t.IsZero() {
				closed := t.Time
				a.ClosedAt = &closed
			}
			if t := pr.GetMergedAt(); !t.IsZero() {
				merged := t.Time
				a.MergedAt = &merged
			}
			for _, label := range pr.Labels {
				a.Labels = append(a.Labels, label.GetName())
			}
			artifacts = append(artifacts, a)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return artifacts, nil
}

func (c *Client) listMilestones(ctx context.Context) ([]models.Artifact, error) {
	opts := &github.MilestoneListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var artifacts []models.Artifact
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.TransientError(err, "rate limiter wait")
		}

		milestones, resp, err := c.client.Issues.ListMilestones(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, errors.TransientErrorf(err, "list milestones for %s/%s", c.owner, c.repo)
		}

		for _, m := range milestones {
			a := models.Artifact{
				Kind:      models.ArtifactMilestone,
				ID:        m.GetNumber(),
				Title:     m.GetTitle(),
				Body:      m.GetDescription(),
				CreatedAt: m.GetCreatedAt().Time,
				UpdatedAt: m.GetUpdatedAt().Time,
			}
			if t := m.GetClosedAt(); !t.IsZero() {
				closed := t.Time
				a.ClosedAt = &closed
			}
			artifacts = append(artifacts, a)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return artifacts, nil
}

func (c *Client) listProjects(ctx context.Context) ([]models.Artifact, error) {
	opts := &github.ProjectListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var artifacts []models.Artifact
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.TransientError(err, "rate limiter wait")
		}

		projects, resp, err := c.client.Repositories.ListProjects(ctx, c.owner, c.repo, opts)
		if err != nil {
			// Classic projects are disabled on many repos; a 404/410 here is
			// a data gap for the kind, not a failure
			if resp != nil && (resp.StatusCode == 404 || resp.StatusCode == 410) {
				return nil, nil
			}
			return nil, errors.TransientErrorf(err, "list projects for %s/%s", c.owner, c.repo)
		}

		for _, p := range projects {
			artifacts = append(artifacts, models.Artifact{
				Kind:      models.ArtifactProject,
				ID:        p.GetNumber(),
				Title:     p.GetName(),
				Body:      p.GetBody(),
				CreatedAt: p.GetCreatedAt().Time,
				UpdatedAt: p.GetUpdatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return artifacts, nil
}

// A bounded default timeout for one paginated listing, used when the caller
// did not already set a deadline.
const defaultListTimeout = 60 * time.Second

// withDeadline ensures every external call carries a bounded timeout.
func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultListTimeout)
}
