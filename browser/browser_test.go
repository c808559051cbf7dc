package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nikshitha/meeting-recorder/config"
	"github.com/nikshitha/meeting-recorder/logger"
	"github.com/nikshitha/meeting-recorder/meeting"
	"github.com/nikshitha/meeting-recorder/stealth"
)

func TestLaunchFlags(t *testing.T) {
	required := []string{
		"use-fake-ui-for-media-stream",
		"use-fake-device-for-media-stream",
		"auto-accept-this-tab-capture",
		"disable-dev-shm-usage",
	}

	have := make(map[string]bool)
	for _, f := range launchFlags {
		have[string(f)] = true
	}
	for _, r := range required {
		if !have[r] {
			t.Errorf("Launch flags missing %s", r)
		}
	}
}

func TestMediaPermissions(t *testing.T) {
	if len(mediaPermissions) != 3 {
		t.Errorf("Expected microphone, camera and display capture grants, got %v", mediaPermissions)
	}
}

func TestCaptureScriptsUseExplicitHandle(t *testing.T) {
	if strings.Contains(startCaptureJS, "window.") || strings.Contains(stopCaptureJS, "window.") {
		t.Error("Capture scripts should not keep state on window")
	}
	if !strings.Contains(stopCaptureJS, "this") {
		t.Error("Stop script should read the handle from this")
	}
	if !strings.HasPrefix(stopCaptureJS, "function") {
		t.Error("Stop script must be a plain function so this can be bound")
	}
}

func TestControlString(t *testing.T) {
	c := Control{Tag: "BUTTON", AriaLabel: "Leave call", Text: "Leave"}
	want := `button aria-label="Leave call" text="Leave"`
	if got := c.String(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestLaunchCancelled(t *testing.T) {
	cfg := config.DefaultConfig()
	log := logger.Discard()
	b := NewBrowser(cfg, log, stealth.NewStealthManager(&cfg.Stealth, log))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Launch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected a cancelled launch, got %v", err)
	}
	if b.launcher != nil || b.browser != nil {
		t.Error("A cancelled launch should not leave a browser behind")
	}
}

// The tests below drive a real Chrome and are skipped unless
// MEETING_RECORDER_BROWSER_TESTS is set.

const fakeMeetingPage = `<!doctype html>
<html><body>
<input placeholder="Your name" id="name">
<button id="join" onclick="document.body.dataset.joined = document.getElementById('name').value">Join now</button>
</body></html>`

func launchForTest(t *testing.T) *Page {
	if os.Getenv("MEETING_RECORDER_BROWSER_TESTS") == "" {
		t.Skip("set MEETING_RECORDER_BROWSER_TESTS to run browser tests")
	}

	cfg := config.DefaultConfig()
	cfg.Stealth = config.StealthConfig{}
	cfg.Browser.BinPath = os.Getenv("BROWSER_BIN")

	log := logger.Discard()
	b := NewBrowser(cfg, log, stealth.NewStealthManager(&cfg.Stealth, log))

	page, err := b.Launch(context.Background())
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

func TestBrowserJoinFlow(t *testing.T) {
	page := launchForTest(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fakeMeetingPage)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := page.Navigate(ctx, srv.URL); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	if err := page.Fill(ctx, meeting.ByCSS(`input[placeholder*="name" i]`), "Bot"); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if err := page.Click(ctx, meeting.ByText("button", "Join now")); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	joined, err := page.page.Eval(`() => document.body.dataset.joined`)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if joined.Value.Str() != "Bot" {
		t.Errorf("Expected the join handler to see the typed name, got %q", joined.Value.Str())
	}
}

func TestBrowserMissingElement(t *testing.T) {
	page := launchForTest(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fakeMeetingPage)
	}))
	defer srv.Close()

	if err := page.Navigate(context.Background(), srv.URL); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := page.Click(ctx, meeting.ByCSS("#leave"))
	if !errors.Is(err, meeting.ErrNoMatch) {
		t.Errorf("Expected ErrNoMatch, got %v", err)
	}
}

func TestBrowserProbe(t *testing.T) {
	page := launchForTest(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fakeMeetingPage)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := page.Navigate(ctx, srv.URL); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	controls, err := page.Probe(ctx)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if len(controls) != 2 {
		t.Fatalf("Expected the name input and join button, got %v", controls)
	}
	if controls[0].Placeholder != "Your name" || controls[1].Text != "Join now" {
		t.Errorf("Unexpected controls %v", controls)
	}
}
