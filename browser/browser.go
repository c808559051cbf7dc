// Package browser provides browser automation setup and management using Rod.
// It launches Chrome with media-capture permissions for the meeting providers
// and exposes the single page the session drives.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/nikshitha/meeting-recorder/config"
	"github.com/nikshitha/meeting-recorder/logger"
	"github.com/nikshitha/meeting-recorder/meeting"
	"github.com/nikshitha/meeting-recorder/stealth"
)

// Chrome switches needed to join calls headless and capture tab audio
// without a permission prompt.
var launchFlags = []flags.Flag{
	"disable-dev-shm-usage",
	"disable-accelerated-2d-canvas",
	"no-first-run",
	"no-default-browser-check",
	"no-zygote",
	"disable-gpu",
	"disable-infobars",
	"use-fake-ui-for-media-stream",
	"use-fake-device-for-media-stream",
	"auto-accept-this-tab-capture",
	"allow-running-insecure-content",
}

// Permissions granted to every meeting provider origin
var mediaPermissions = []proto.BrowserPermissionType{
	proto.BrowserPermissionTypeAudioCapture,
	proto.BrowserPermissionTypeVideoCapture,
	proto.BrowserPermissionTypeDisplayCapture,
}

// Browser wraps the Rod browser with additional functionality
type Browser struct {
	config   *config.Config
	logger   *logger.Logger
	stealth  *stealth.StealthManager
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowser creates a new browser instance
func NewBrowser(cfg *config.Config, log *logger.Logger, s *stealth.StealthManager) *Browser {
	return &Browser{
		config:  cfg,
		logger:  log.WithModule("browser"),
		stealth: s,
	}
}

// Launch starts Chrome, grants media permissions to the provider origins and
// opens the page the session will drive.
func (b *Browser) Launch(ctx context.Context) (*Page, error) {
	b.logger.Info("Launching browser")

	// Ensure user data directory exists
	if b.config.Browser.UserDataDir != "" {
		absPath, err := filepath.Abs(b.config.Browser.UserDataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for user data dir: %w", err)
		}
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create user data directory: %w", err)
		}
		b.config.Browser.UserDataDir = absPath
	}

	viewportWidth, viewportHeight := b.config.Browser.ViewportWidth, b.config.Browser.ViewportHeight
	if b.config.Stealth.RandomizeViewport {
		viewportWidth, viewportHeight = b.stealth.GetRandomViewport()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(b.config.Browser.Headless).
		NoSandbox(b.config.Browser.NoSandbox).
		Set("disable-blink-features", "AutomationControlled").
		Set("autoplay-policy", "no-user-gesture-required").
		Set("window-size", fmt.Sprintf("%d,%d", viewportWidth, viewportHeight))

	for _, f := range launchFlags {
		l = l.Set(f)
	}

	if b.config.Browser.BinPath != "" {
		l = l.Bin(b.config.Browser.BinPath)
	}
	if b.config.Browser.UserDataDir != "" {
		l = l.UserDataDir(b.config.Browser.UserDataDir)
	}

	// ctx bounds startup only; once Chrome is up its lifetime belongs to Close
	launchCtx, cancelLaunch := context.WithCancel(context.Background())
	stopWatch := context.AfterFunc(ctx, cancelLaunch)
	l = l.Context(launchCtx)

	url, err := l.Launch()
	if !stopWatch() && err == nil {
		err = ctx.Err()
		l.Kill()
		if b.config.Browser.UserDataDir == "" {
			l.Cleanup()
		}
	}
	if err != nil {
		cancelLaunch()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	b.launcher = l

	b.browser = rod.New().ControlURL(url)
	if b.config.Browser.SlowMotion > 0 {
		b.browser = b.browser.SlowMotion(time.Duration(b.config.Browser.SlowMotion) * time.Millisecond)
	}

	if err := b.browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	b.logger.Info("Browser launched successfully")

	b.grantPermissions()

	page, err := b.createPage(viewportWidth, viewportHeight)
	if err != nil {
		b.Close()
		return nil, err
	}
	return page, nil
}

// grantPermissions pre-approves microphone, camera and display capture for
// every known provider origin. A refused grant is logged, not fatal.
func (b *Browser) grantPermissions() {
	for _, origin := range meeting.Origins() {
		err := proto.BrowserGrantPermissions{
			Permissions: mediaPermissions,
			Origin:      origin,
		}.Call(b.browser)
		if err != nil {
			b.logger.WithError(err).WithField("origin", origin).Warn("Failed to grant media permissions")
			continue
		}
		b.logger.WithField("origin", origin).Debug("Media permissions granted")
	}
}

// createPage creates the page with the configured viewport
func (b *Browser) createPage(width, height int) (*Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
	if err != nil {
		b.logger.WithError(err).Warn("Failed to set viewport")
	}

	if b.config.Stealth.RandomUserAgent {
		userAgent := b.stealth.GetRandomUserAgent()
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: userAgent,
		})
		if err != nil {
			b.logger.WithError(err).Warn("Failed to set user agent")
		} else {
			b.logger.WithField("user_agent", userAgent).Debug("User agent set")
		}
	}

	// Hide the webdriver flag some providers check before admitting guests
	if _, err := page.EvalOnNewDocument(`Object.defineProperty(navigator, 'webdriver', { get: () => undefined })`); err != nil {
		b.logger.WithError(err).Warn("Failed to install page init script")
	}

	b.logger.WithFields(map[string]interface{}{
		"width":  width,
		"height": height,
	}).Info("Page created")

	return &Page{
		page:    page,
		owner:   b,
		logger:  b.logger,
		stealth: b.stealth,
	}, nil
}

// Close closes the browser and cleans up the launcher
func (b *Browser) Close() error {
	b.logger.Info("Closing browser")

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}

	if b.launcher != nil {
		if err != nil {
			b.launcher.Kill()
		}
		// Only temporary profiles are removed
		if b.config.Browser.UserDataDir == "" {
			b.launcher.Cleanup()
		}
		b.launcher = nil
	}

	return err
}
