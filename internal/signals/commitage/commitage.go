// Package commitage reports how stale the portfolio repository is. It reads
// HEAD from a local clone when one is configured and falls back to the GitHub
// commits API otherwise.
package commitage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	"github.com/alexisbeaulieu97/signalboard/internal/signals/httpx"
)

// Options configure where commit timestamps come from and how age maps to
// status. RepoPath wins over the GitHub API when both are set.
type Options struct {
	RepoPath string
	Owner    string
	Repo     string
	Token    string
	// APIBaseURL overrides the GitHub API root. Empty means api.github.com.
	APIBaseURL string
	WarnDays   int
	BadDays    int
}

type commitAgeSignal struct {
	opts   Options
	client *http.Client
	now    func() time.Time
}

// New creates the portfolio commit age signal.
func New(opts Options) (signal.Signal, error) {
	if opts.WarnDays <= 0 {
		opts.WarnDays = 7
	}
	if opts.BadDays <= 0 {
		opts.BadDays = 21
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://api.github.com"
	}
	opts.APIBaseURL = strings.TrimRight(opts.APIBaseURL, "/")

	return &commitAgeSignal{
		opts:   opts,
		client: &http.Client{},
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *commitAgeSignal) Meta() signal.Meta {
	return signal.Meta{
		ID:           "portfolio_last_commit_age",
		Title:        "Portfolio: last commit age",
		PollInterval: 5 * time.Minute,
		Timeout:      2 * time.Second,
	}
}

func (s *commitAgeSignal) Fetch(ctx context.Context) (signal.Result, error) {
	link := ""
	if s.opts.Owner != "" && s.opts.Repo != "" {
		link = fmt.Sprintf("https://github.com/%s/%s", s.opts.Owner, s.opts.Repo)
	}

	if s.opts.RepoPath != "" {
		commitTS, err := localHeadTime(s.opts.RepoPath)
		if err == nil {
			return s.grade(commitTS, link), nil
		}
		if link == "" {
			res := signal.BadResult("repo read failed", err.Error())
			return res, nil
		}
		// Local clone unusable; the API path below still works.
	}

	if s.opts.Owner == "" || s.opts.Repo == "" {
		return signal.Result{
			Status:  signal.StatusWarn,
			Value:   "GitHub repo not configured",
			TS:      s.now(),
			Details: "Set a local repo path or a GitHub owner and repo (and optionally a token).",
		}, nil
	}

	commitTS, err := s.apiHeadTime(ctx)
	if err != nil {
		var statusErr *httpx.StatusError
		if errors.As(err, &statusErr) {
			res := signal.BadResult(
				fmt.Sprintf("GitHub HTTP %d", statusErr.Code),
				statusErr.Status+". If this is rate limiting, set a GitHub token.",
			)
			res.Link = link
			return res, nil
		}
		res := signal.BadResult("GitHub fetch failed", err.Error())
		res.Link = link
		return res, nil
	}

	return s.grade(commitTS, link), nil
}

func (s *commitAgeSignal) grade(commitTS time.Time, link string) signal.Result {
	ageDays := int(s.now().Sub(commitTS).Seconds()) / 86400
	if ageDays < 0 {
		ageDays = 0
	}

	var status signal.Status
	switch {
	case ageDays >= s.opts.BadDays:
		status = signal.StatusBad
	case ageDays >= s.opts.WarnDays:
		status = signal.StatusWarn
	default:
		status = signal.StatusOK
	}

	return signal.Result{
		Status: status,
		Value:  fmt.Sprintf("%dd since last commit", ageDays),
		TS:     commitTS,
		Details: fmt.Sprintf("Last commit: %s (UTC). Thresholds: warn>=%dd, bad>=%dd.",
			commitTS.Format(time.RFC3339), s.opts.WarnDays, s.opts.BadDays),
		Link: link,
	}
}

// localHeadTime returns the committer timestamp of HEAD in the clone at path.
func localHeadTime(path string) (time.Time, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return time.Time{}, fmt.Errorf("read commit: %w", err)
	}

	return commit.Committer.When.UTC(), nil
}

type apiCommit struct {
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// apiHeadTime returns the most recent commit timestamp on the default branch
// via the GitHub API, preferring the committer date over the author date.
func (s *commitAgeSignal) apiHeadTime(ctx context.Context) (time.Time, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=1", s.opts.APIBaseURL, s.opts.Owner, s.opts.Repo)

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	if s.opts.Token != "" {
		header.Set("Authorization", "Bearer "+s.opts.Token)
	}

	var commits []apiCommit
	if err := httpx.GetJSON(ctx, s.client, url, header, &commits); err != nil {
		return time.Time{}, err
	}
	if len(commits) == 0 {
		return time.Time{}, errors.New("GitHub API returned an empty commits list")
	}

	ts := commits[0].Commit.Committer.Date
	if ts.IsZero() {
		ts = commits[0].Commit.Author.Date
	}
	if ts.IsZero() {
		return time.Time{}, errors.New("commit timestamp missing from API response")
	}
	return ts.UTC(), nil
}
