// Package lifecycle reports application-level conditions on the bus: whether
// a newer release is available and whether the app is in the foreground.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/event"
)

// VersionConfig holds version check configuration.
type VersionConfig struct {
	// Current is the running version.
	Current string
	// ManifestURL serves {"version": "..."} for the latest release.
	ManifestURL string
	Timeout     time.Duration
}

type manifest struct {
	Version string `json:"version"`
}

// VersionChecker compares the running version with the published manifest.
type VersionChecker struct {
	cfg        VersionConfig
	httpClient *http.Client
	bus        *bus.Bus
	logger     *slog.Logger
}

func NewVersionChecker(cfg VersionConfig, b *bus.Bus, logger *slog.Logger) *VersionChecker {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &VersionChecker{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		bus:        b,
		logger:     logger.With("component", "version"),
	}
}

// Check fetches the manifest and publishes NEW_VERSION or UP_TO_DATE.
// Failures are logged and publish nothing; the next check tries again.
func (v *VersionChecker) Check(ctx context.Context) {
	latest, err := v.latest(ctx)
	if err != nil {
		v.logger.Warn("version check failed", "error", err)
		return
	}
	if latest == "" || latest == v.cfg.Current {
		v.bus.Publish(event.New(event.UpToDate, nil))
		return
	}
	v.logger.Info("new version available", "current", v.cfg.Current, "latest", latest)
	v.bus.Publish(event.New(event.NewVersion, event.VersionInfo{
		Version:    v.cfg.Current,
		NewVersion: latest,
	}))
}

func (v *VersionChecker) latest(ctx context.Context) (string, error) {
	if v.cfg.ManifestURL == "" {
		return "", nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.ManifestURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch manifest: status %d", resp.StatusCode)
	}

	var m manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return "", fmt.Errorf("decode manifest: %w", err)
	}
	return strings.TrimSpace(m.Version), nil
}
