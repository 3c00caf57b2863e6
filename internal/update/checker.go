package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/audioremote/audioremoted/internal/logging"
)

// Manifest is the published release descriptor fetched from the manifest URL.
type Manifest struct {
	Version string `json:"version"`
	URL     string `json:"url,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

const manifestSizeLimit = 64 * 1024

// Checker polls a release manifest and logs when a newer version is
// published. It never installs anything; applying updates is out of scope.
type Checker struct {
	current     string
	manifestURL string
	interval    time.Duration
	client      *http.Client
	logger      *zerolog.Logger
}

// NewChecker constructs a Checker. A zero interval selects one hour.
func NewChecker(current, manifestURL string, interval time.Duration, logger *zerolog.Logger) *Checker {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = logging.GetSubsystemLogger("update")
	}
	return &Checker{
		current:     current,
		manifestURL: manifestURL,
		interval:    interval,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// CheckOnce fetches the manifest and reports whether it announces a version
// newer than the running one.
func (c *Checker) CheckOnce(ctx context.Context) (*Manifest, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.manifestURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build manifest request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch release manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("fetch release manifest: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, manifestSizeLimit))
	if err != nil {
		return nil, false, fmt.Errorf("read release manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, false, fmt.Errorf("decode release manifest: %w", err)
	}
	if m.Version == "" {
		return nil, false, fmt.Errorf("release manifest has no version")
	}

	return &m, HasUpdate(c.current, m.Version), nil
}

// Run polls the manifest until ctx is canceled. The first check runs after
// one full interval so daemon startup stays quiet.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m, newer, err := c.CheckOnce(ctx)
			if err != nil {
				c.logger.Warn().Err(err).Msg("update check failed")
				continue
			}
			if newer {
				c.logger.Info().
					Str("current", c.current).
					Str("latest", m.Version).
					Str("url", m.URL).
					Msg("a newer release is available")
			} else {
				c.logger.Debug().Str("current", c.current).Str("latest", m.Version).Msg("running the latest release")
			}
		}
	}
}
