// Package config loads triagebot settings from a YAML file with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/auth"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// DefaultPath is the settings file read when no path is given.
const DefaultPath = "triagebot.yaml"

const day = 24 * time.Hour

// tokenForHost resolves a token from the gh CLI credential store. It is a
// variable so tests can stub it out.
var tokenForHost = auth.TokenForHost

// Config holds the bot settings read from the YAML file and environment.
type Config struct {
	GitHubToken string `yaml:"-"`
	// TokenSource records where GitHubToken came from ("env", "GH_TOKEN",
	// "oauth_token", ...). Empty when no token was found.
	TokenSource string `yaml:"-"`

	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`

	DaysSinceLastEdit  int      `yaml:"days_since_last_edit"`
	MaxProcessedIssues int      `yaml:"max_processed_issues"`
	MaxClosedIssues    int      `yaml:"max_closed_issues"`
	LabelsToClose      []string `yaml:"labels_to_close"`
	CloseMessage       string   `yaml:"close_message"`

	PR   PRSettings   `yaml:"pr"`
	Lock LockSettings `yaml:"lock"`

	DryRun bool `yaml:"dry"`
	Debug  bool `yaml:"debug"`

	LogDir         string        `yaml:"log_folder"`
	DBPath         string        `yaml:"db_path"`
	ListenAddr     string        `yaml:"listen_addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PRSettings configures the close-stale-pull-requests run.
type PRSettings struct {
	DaysSinceLastEdit int    `yaml:"days_since_last_edit"`
	MaxProcessed      int    `yaml:"max_processed"`
	MaxClosed         int    `yaml:"max_closed"`
	CloseMessage      string `yaml:"close_message"`
}

// LockSettings configures the lock-old-closed-issues run. FirstIssue and
// FirstPage are the resume watermark of a previous sweep.
type LockSettings struct {
	DaysSinceLastEdit int `yaml:"days_since_last_edit"`
	MaxProcessed      int `yaml:"max_processed"`
	MaxLocked         int `yaml:"max_locked"`
	FirstIssue        int `yaml:"first_issue"`
	FirstPage         int `yaml:"first_page"`
}

// Default returns the settings used for keys the file and environment leave
// unset. Runs are dry unless explicitly disabled.
func Default() *Config {
	return &Config{
		DaysSinceLastEdit:  14,
		MaxProcessedIssues: -1,
		MaxClosedIssues:    -1,
		LabelsToClose:      []string{},
		PR: PRSettings{
			DaysSinceLastEdit: 14,
			MaxProcessed:      -1,
			MaxClosed:         -1,
		},
		Lock: LockSettings{
			DaysSinceLastEdit: 14,
			MaxProcessed:      -1,
			MaxLocked:         -1,
		},
		DryRun:         true,
		LogDir:         "logs",
		DBPath:         "triagebot.db",
		ListenAddr:     "127.0.0.1:8080",
		RequestTimeout: 5 * time.Second,
	}
}

// Load reads the YAML settings at path, then applies TRIAGEBOT_* environment
// overrides. A missing file is an error only when explicit is true; otherwise
// defaults and the environment are used.
//
// Environment variables: TRIAGEBOT_GITHUB_TOKEN, TRIAGEBOT_OWNER,
// TRIAGEBOT_REPO, TRIAGEBOT_DRY, TRIAGEBOT_DEBUG, TRIAGEBOT_LOG_DIR,
// TRIAGEBOT_DB_PATH, TRIAGEBOT_LISTEN_ADDR, TRIAGEBOT_REQUEST_TIMEOUT.
// Without TRIAGEBOT_GITHUB_TOKEN the gh CLI credentials for github.com are
// used (GH_TOKEN, GITHUB_TOKEN or the gh config file).
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken, cfg.TokenSource = tokenForHost("github.com")
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("TRIAGEBOT_GITHUB_TOKEN"); ok && v != "" {
		c.GitHubToken = v
		c.TokenSource = "TRIAGEBOT_GITHUB_TOKEN"
	}
	if v, ok := os.LookupEnv("TRIAGEBOT_OWNER"); ok {
		c.Owner = v
	}
	if v, ok := os.LookupEnv("TRIAGEBOT_REPO"); ok {
		c.Repo = v
	}
	if v, ok := os.LookupEnv("TRIAGEBOT_DRY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRIAGEBOT_DRY has invalid boolean %q: %w", v, err)
		}
		c.DryRun = b
	}
	if v, ok := os.LookupEnv("TRIAGEBOT_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRIAGEBOT_DEBUG has invalid boolean %q: %w", v, err)
		}
		c.Debug = b
	}
	if v, ok := os.LookupEnv("TRIAGEBOT_LOG_DIR"); ok {
		c.LogDir = v
	}
	if v, ok := os.LookupEnv("TRIAGEBOT_DB_PATH"); ok {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv("TRIAGEBOT_LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok := os.LookupEnv("TRIAGEBOT_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRIAGEBOT_REQUEST_TIMEOUT has invalid duration %q: %w", v, err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// Validate checks the settings a triage run needs. Serving the run history
// does not need a repository or token.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Owner) == "" || strings.TrimSpace(c.Repo) == "" {
		errs = append(errs, errors.New("owner and repo must be set"))
	}
	if c.GitHubToken == "" {
		errs = append(errs, errors.New("no GitHub token: set TRIAGEBOT_GITHUB_TOKEN or log in with gh"))
	}
	if c.DaysSinceLastEdit < 0 || c.PR.DaysSinceLastEdit < 0 || c.Lock.DaysSinceLastEdit < 0 {
		errs = append(errs, errors.New("days_since_last_edit must not be negative"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// CloseIssuesPolicy builds the close-stale-issues policy.
func (c *Config) CloseIssuesPolicy() model.Policy {
	return model.NewPolicy(model.Policy{
		Kind:          model.PolicyCloseIssues,
		StaleAfter:    time.Duration(c.DaysSinceLastEdit) * day,
		MaxProcessed:  c.MaxProcessedIssues,
		MaxActed:      c.MaxClosedIssues,
		ActionMessage: c.CloseMessage,
		DryRun:        c.DryRun,
		CloseLabels:   c.LabelsToClose,
	})
}

// ClosePRsPolicy builds the close-stale-pull-requests policy.
func (c *Config) ClosePRsPolicy() model.Policy {
	return model.NewPolicy(model.Policy{
		Kind:          model.PolicyClosePRs,
		StaleAfter:    time.Duration(c.PR.DaysSinceLastEdit) * day,
		MaxProcessed:  c.PR.MaxProcessed,
		MaxActed:      c.PR.MaxClosed,
		ActionMessage: c.PR.CloseMessage,
		DryRun:        c.DryRun,
	})
}

// LockPolicy builds the lock-old-closed-issues policy.
func (c *Config) LockPolicy() model.Policy {
	return model.NewPolicy(model.Policy{
		Kind:            model.PolicyLockIssues,
		StaleAfter:      time.Duration(c.Lock.DaysSinceLastEdit) * day,
		MaxProcessed:    c.Lock.MaxProcessed,
		MaxActed:        c.Lock.MaxLocked,
		DryRun:          c.DryRun,
		FirstItemNumber: c.Lock.FirstIssue,
		FirstPage:       c.Lock.FirstPage,
	})
}

// Policy returns the policy for kind.
func (c *Config) Policy(kind model.PolicyKind) (model.Policy, error) {
	switch kind {
	case model.PolicyCloseIssues:
		return c.CloseIssuesPolicy(), nil
	case model.PolicyClosePRs:
		return c.ClosePRsPolicy(), nil
	case model.PolicyLockIssues:
		return c.LockPolicy(), nil
	default:
		return model.Policy{}, fmt.Errorf("unknown policy %q", kind)
	}
}
