// Package session drives one meeting from browser launch to teardown:
// join, record, leave and close, in that order.
//
// UI interactions are best-effort. Every control is located by trying the
// provider's candidate locators in order with a short timeout; a control that
// cannot be found is logged and skipped. Only a launch failure, a navigation
// failure and a capture failure are reported to the caller.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikshitha/meeting-recorder/config"
	"github.com/nikshitha/meeting-recorder/logger"
	"github.com/nikshitha/meeting-recorder/meeting"
)

var (
	ErrNotStarted       = errors.New("session not started")
	ErrAlreadyStarted   = errors.New("session already started")
	ErrAlreadyRecording = errors.New("recording already in progress")
)

// LaunchFunc starts a browser and returns its single page.
type LaunchFunc func(ctx context.Context) (meeting.Page, error)

// Session owns one browser page and at most one active recording.
type Session struct {
	id     string
	config *config.Config
	logger *logger.Logger
	launch LaunchFunc
	now    func() time.Time

	page        meeting.Page
	provider    meeting.Provider
	meetingURL  string
	joinClicked bool

	mu        sync.Mutex
	recording bool
	recorder  meeting.Recorder
	timer     *time.Timer
	path      string
	startedAt time.Time
	done      chan struct{}
	artifacts []Artifact
}

// New creates a session. Nothing is launched until Start.
func New(cfg *config.Config, log *logger.Logger, launch LaunchFunc) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		config:   cfg,
		logger:   log.WithModule("session").WithSession(id),
		launch:   launch,
		now:      time.Now,
		provider: meeting.ProviderGeneric,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Provider returns the provider chosen by the last Join
func (s *Session) Provider() meeting.Provider {
	return s.provider
}

// MeetingURL returns the URL passed to the last Join
func (s *Session) MeetingURL() string {
	return s.meetingURL
}

// JoinClicked reports whether the last Join found and clicked a join control
func (s *Session) JoinClicked() bool {
	return s.joinClicked
}

// Start launches the browser. A failure here is fatal for the session.
func (s *Session) Start(ctx context.Context) error {
	if s.page != nil {
		return ErrAlreadyStarted
	}

	s.logger.Info("Starting browser")
	page, err := s.launch(ctx)
	if err != nil {
		s.logger.SessionEvent("start", false)
		return fmt.Errorf("failed to start browser: %w", err)
	}

	s.page = page
	s.logger.SessionEvent("start", true)
	return nil
}

// Join navigates to meetingURL and runs the provider's join steps. It returns
// false only when the session is not started or navigation fails; missing
// controls are skipped.
func (s *Session) Join(ctx context.Context, meetingURL string) bool {
	if s.page == nil {
		s.logger.Warn("Join called before Start")
		return false
	}

	s.meetingURL = meetingURL
	s.provider = s.resolveProvider(meetingURL)
	profile, _ := meeting.Lookup(s.provider)

	log := s.logger.WithField("provider", string(s.provider))
	log.BrowserAction("navigate", meetingURL)

	navCtx, cancel := context.WithTimeout(ctx, s.config.GetTimeout())
	err := s.page.Navigate(navCtx, meetingURL)
	cancel()
	if err != nil {
		log.WithError(err).Error("Failed to open meeting page")
		s.logger.SessionEvent("join", false)
		return false
	}

	inputs := meeting.Inputs{
		DisplayName: s.config.Meeting.DisplayName,
		MeetingID:   s.config.Meeting.ZoomMeetingID,
		Passcode:    s.config.Meeting.ZoomPasscode,
	}

	s.joinClicked = false
	for _, step := range profile.Join {
		if !s.wantStep(step, inputs) {
			continue
		}
		ok := s.runStep(ctx, step, inputs)
		if step.Control == meeting.ControlJoin {
			s.joinClicked = ok
		}
	}

	if !s.joinClicked {
		log.Warn("No join control matched; assuming the page admits us directly")
	}

	sleepContext(ctx, time.Duration(s.config.Meeting.JoinSettleSeconds)*time.Second)
	s.logger.SessionEvent("join", true)
	return true
}

// Record starts capturing audio and schedules an automatic stop after d.
// Starting the capture is bounded by the browser timeout. The returned path
// is where the artifact will be written once the recording is stopped; the
// file does not exist before then.
func (s *Session) Record(ctx context.Context, d time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return "", ErrNotStarted
	}
	if s.recording {
		return "", ErrAlreadyRecording
	}

	dir := s.config.Recording.OutputDir
	if err := EnsureDir(dir); err != nil {
		return "", err
	}

	startedAt := s.now()
	path := artifactPath(dir, startedAt)

	s.logger.WithField("duration", d.String()).Info("Starting recording")
	captureCtx, cancel := context.WithTimeout(ctx, s.config.GetTimeout())
	rec, err := s.page.StartCapture(captureCtx)
	cancel()
	if err != nil {
		s.logger.SessionEvent("record", false)
		return "", fmt.Errorf("failed to start capture: %w", err)
	}

	s.recording = true
	s.recorder = rec
	s.path = path
	s.startedAt = startedAt
	s.done = make(chan struct{})
	s.timer = time.AfterFunc(d, s.autoStop)

	s.logger.SessionEvent("record", true)
	return path, nil
}

func (s *Session) autoStop() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.Recording.StopTimeoutSecs)*time.Second)
	defer cancel()

	s.logger.Debug("Recording duration elapsed")
	if _, _, err := s.Stop(ctx); err != nil {
		s.logger.WithError(err).Error("Automatic stop failed")
	}
}

// IsRecording reports whether a capture is active
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Stop finalises the active recording and writes it to disk. When nothing is
// recording it returns ok=false without touching the filesystem. The pending
// automatic stop is cancelled.
func (s *Session) Stop(ctx context.Context) (Artifact, bool, error) {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return Artifact{}, false, nil
	}
	s.recording = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	rec, path, startedAt, done := s.recorder, s.path, s.startedAt, s.done
	s.recorder = nil
	s.mu.Unlock()
	defer close(done)

	s.logger.Info("Stopping recording")
	payload, err := rec.Stop(ctx)
	if err != nil {
		return Artifact{}, false, fmt.Errorf("failed to stop capture: %w", err)
	}

	data, err := DecodeDataURL(payload)
	if err != nil {
		return Artifact{}, false, err
	}
	if len(data) == 0 {
		s.logger.Warn("Capture produced no audio, nothing written")
		return Artifact{}, false, nil
	}

	size, err := writeArtifact(path, data)
	if err != nil {
		return Artifact{}, false, err
	}

	artifact := Artifact{
		Path:      path,
		Size:      size,
		StartedAt: startedAt,
		StoppedAt: s.now(),
	}

	s.mu.Lock()
	s.artifacts = append(s.artifacts, artifact)
	s.mu.Unlock()

	s.logger.Artifact(artifact.Path, artifact.Size, artifact.Duration())
	return artifact, true, nil
}

// Wait blocks until the active recording has been finalised, whether by the
// timer or an explicit Stop. It returns immediately when nothing is recording.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Artifacts returns the recordings written by this session
func (s *Session) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Leave clicks the provider's leave control. Failures are logged and swallowed.
func (s *Session) Leave(ctx context.Context) bool {
	if s.page == nil {
		return false
	}

	profile, _ := meeting.Lookup(s.provider)
	s.logger.Info("Leaving meeting")

	left := false
	for _, step := range profile.Leave {
		ok := s.runStep(ctx, step, meeting.Inputs{})
		if step.Control == meeting.ControlLeave {
			left = ok
		}
	}

	sleepContext(ctx, time.Duration(s.config.Meeting.LeaveSettleSeconds)*time.Second)
	s.logger.SessionEvent("leave", left)
	return left
}

// Close stops any active recording and tears down the browser. Teardown is
// attempted even when stopping fails.
func (s *Session) Close(ctx context.Context) error {
	if _, _, err := s.Stop(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to finalise recording during close")
	}
	// A timer-driven stop may still be reading the capture out of the page
	if err := s.Wait(ctx); err != nil {
		s.logger.WithError(err).Warn("Recording still finalising at close")
	}

	s.mu.Lock()
	page := s.page
	s.page = nil
	s.mu.Unlock()

	if page == nil {
		return nil
	}

	s.logger.Info("Closing browser")
	if err := page.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	s.logger.SessionEvent("close", true)
	return nil
}

func (s *Session) resolveProvider(meetingURL string) meeting.Provider {
	if s.config.Meeting.Provider != "" {
		p, err := meeting.ParseProvider(s.config.Meeting.Provider)
		if err == nil {
			return p
		}
		s.logger.WithError(err).Warn("Ignoring configured provider")
	}
	return meeting.Detect(meetingURL)
}

// wantStep filters steps the configuration opts out of.
func (s *Session) wantStep(step meeting.Step, inputs meeting.Inputs) bool {
	switch step.Control {
	case meeting.ControlMuteMicrophone:
		return s.config.Meeting.MuteMicrophone
	case meeting.ControlMuteCamera:
		return s.config.Meeting.MuteCamera
	}
	if step.Action != meeting.ActionClick && inputs.Get(step.Value) == "" {
		return false
	}
	return true
}

// runStep tries each candidate locator once, stopping at the first that works.
func (s *Session) runStep(ctx context.Context, step meeting.Step, inputs meeting.Inputs) bool {
	value := inputs.Get(step.Value)

	for _, loc := range step.Locators {
		attemptCtx, cancel := context.WithTimeout(ctx, s.config.SelectorTimeout())
		var err error
		if step.Action == meeting.ActionClick {
			err = s.page.Click(attemptCtx, loc)
		} else {
			err = s.page.Fill(attemptCtx, loc, value)
		}
		cancel()

		s.logger.LocatorAttempt(step.Control, loc.String(), err == nil)
		if err == nil {
			if step.Action == meeting.ActionFillSubmit {
				s.runStep(ctx, meeting.Step{Control: step.Control + "_submit", Locators: step.Submit}, inputs)
			}
			s.logger.WithField("control", step.Control).Info("Control used")
			return true
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.logger.WithField("control", step.Control).Info("Control not found, skipping")
	return false
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
