// Package browser drives a Chrome session to read profile and search pages.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/fetch"
	"github.com/spigell/profile-extractor/internal/profile"
)

const (
	defaultNavigationTimeout = 60 * time.Second
	defaultLoginTimeout      = 5 * time.Minute
	defaultSettleDelay       = 2 * time.Second
	loginPollInterval        = 2 * time.Second
)

// ErrLoginRequired is returned when the session lands on a sign-in page and
// nobody completes the login in time.
var ErrLoginRequired = errors.New("login required")

var loginMarkers = []string{"/login", "/authwall", "/checkpoint", "/uas/"}

type Config struct {
	// Headless is false to let a person sign in on the first run.
	Headless bool `mapstructure:"headless"`
	// UserDataDir keeps cookies between runs.
	UserDataDir       string        `mapstructure:"user-data-dir"`
	UserAgent         string        `mapstructure:"user-agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation-timeout"`
	LoginTimeout      time.Duration `mapstructure:"login-timeout"`
	SettleDelay       time.Duration `mapstructure:"settle-delay"`
}

// Browser owns one Chrome process and a single tab reused for every page.
type Browser struct {
	cfg    Config
	logger *zap.Logger

	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
}

func New(cfg Config, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = defaultLoginTimeout
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("enable-automation", false),
	)
	if dir := strings.TrimSpace(cfg.UserDataDir); dir != "" {
		opts = append(opts, chromedp.UserDataDir(dir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		cfg:         cfg,
		logger:      logger,
		allocCancel: allocCancel,
		tab:         tab,
		tabCancel:   tabCancel,
	}

	if err := chromedp.Run(tab, b.setupAction()); err != nil {
		b.Close()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return b, nil
}

// Close stops the tab and the browser process.
func (b *Browser) Close() {
	b.tabCancel()
	b.allocCancel()
}

func (b *Browser) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// Fetch renders the profile page at id and returns its extracted fields.
func (b *Browser) Fetch(ctx context.Context, id profile.Identifier) (profile.RawRecord, error) {
	html, err := b.render(ctx, id.String(), chromedp.WaitReady("main", chromedp.ByQuery))
	if err != nil {
		return nil, err
	}

	data, err := ParseProfile(html)
	if err != nil {
		return nil, err
	}

	if isBlank(data) {
		return nil, fmt.Errorf("no profile content on %s", id)
	}

	b.logger.Debug("profile page parsed",
		zap.String("identifier", id.String()),
		zap.Int("experience", len(data.Experience)),
		zap.Int("education", len(data.Education)),
		zap.Int("languages", len(data.Languages)),
	)

	return data.Map(), nil
}

// render navigates to url and returns the document HTML once ready is satisfied.
func (b *Browser) render(ctx context.Context, url string, ready chromedp.Action) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	navCtx, cancel := context.WithTimeout(b.tab, b.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}

	if err := b.waitForLogin(ctx); err != nil {
		return "", err
	}

	var html string
	err := chromedp.Run(navCtx,
		ready,
		chromedp.Sleep(b.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	return html, nil
}

// waitForLogin blocks while the tab shows a sign-in page. In headless mode
// nobody can sign in, so it fails at once.
func (b *Browser) waitForLogin(ctx context.Context) error {
	deadline := time.Now().Add(b.cfg.LoginTimeout)
	warned := false

	for {
		var location string
		if err := chromedp.Run(b.tab, chromedp.Location(&location)); err != nil {
			return fmt.Errorf("reading location: %w", err)
		}
		if !isLoginPage(location) {
			return nil
		}

		if b.cfg.Headless {
			return fetch.Permanent(fmt.Errorf("%w: redirected to %s", ErrLoginRequired, location))
		}
		if !warned {
			b.logger.Warn("waiting for manual login in the browser window",
				zap.String("location", location),
				zap.Duration("timeout", b.cfg.LoginTimeout),
			)
			warned = true
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: timed out after %s", ErrLoginRequired, b.cfg.LoginTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loginPollInterval):
		}
	}
}

func isLoginPage(location string) bool {
	for _, marker := range loginMarkers {
		if strings.Contains(location, marker) {
			return true
		}
	}
	return false
}
