// Package stealth paces browser interactions so they look like a person
// joining a call: randomised delays between actions, per-keystroke typing,
// and optional user agent and viewport variation.
package stealth

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/nikshitha/meeting-recorder/config"
	"github.com/nikshitha/meeting-recorder/logger"
)

// StealthManager handles interaction pacing
type StealthManager struct {
	config *config.StealthConfig
	logger *logger.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// NewStealthManager creates a new stealth manager
func NewStealthManager(cfg *config.StealthConfig, log *logger.Logger) *StealthManager {
	return &StealthManager{
		config: cfg,
		logger: log.WithModule("stealth"),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *StealthManager) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

// ==============================================================================
// Randomized Timing
// ==============================================================================

// RandomDelay waits between min and max milliseconds, or until ctx is done
func (s *StealthManager) RandomDelay(ctx context.Context, minMs, maxMs int) {
	if maxMs <= 0 {
		return
	}
	if maxMs < minMs {
		maxMs = minMs
	}
	delay := minMs + s.intn(maxMs-minMs+1)

	t := time.NewTimer(time.Duration(delay) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// ActionDelay adds human-like delay between actions
func (s *StealthManager) ActionDelay(ctx context.Context) {
	s.RandomDelay(ctx, s.config.ActionDelayMin, s.config.ActionDelayMax)
}

// PageLoadDelay waits for page to fully load with natural variation
func (s *StealthManager) PageLoadDelay(ctx context.Context) {
	s.RandomDelay(ctx, s.config.PageLoadWaitMin, s.config.PageLoadWaitMax)
}

// keystrokeDelay returns the gap before the next keystroke
func (s *StealthManager) keystrokeDelay() time.Duration {
	delay := s.config.TypingDelayMin
	if span := s.config.TypingDelayMax - s.config.TypingDelayMin; span > 0 {
		delay += s.intn(span)
	}

	// Occasionally hesitate
	if s.intn(20) == 0 {
		delay += 200 + s.intn(400)
	}
	return time.Duration(delay) * time.Millisecond
}

// ==============================================================================
// Typing
// ==============================================================================

// HumanType types text into element one rune at a time
func (s *StealthManager) HumanType(ctx context.Context, element *rod.Element, text string) error {
	for _, char := range text {
		if err := element.Context(ctx).Input(string(char)); err != nil {
			return err
		}

		t := time.NewTimer(s.keystrokeDelay())
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	s.logger.StealthAction("typing", map[string]interface{}{
		"length": len([]rune(text)),
	})
	return nil
}

// ==============================================================================
// Fingerprint Variation
// ==============================================================================

// GetRandomUserAgent returns a random, realistic desktop Chrome user agent.
// Meeting web clients refuse most non-Chromium browsers, so only Chrome-family
// agents are listed.
func (s *StealthManager) GetRandomUserAgent() string {
	userAgents := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
	}
	return userAgents[s.intn(len(userAgents))]
}

// GetRandomViewport returns randomized viewport dimensions
func (s *StealthManager) GetRandomViewport() (int, int) {
	viewports := []struct{ width, height int }{
		{1920, 1080},
		{1366, 768},
		{1536, 864},
		{1440, 900},
		{1280, 720},
		{1600, 900},
	}
	vp := viewports[s.intn(len(viewports))]
	// Add slight random variation
	return vp.width + s.intn(20) - 10, vp.height + s.intn(20) - 10
}
