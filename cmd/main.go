// Meeting Recorder - Main Application
// Joins a Google Meet, Zoom or Teams call in a headless browser, records the
// call audio to a file and leaves.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nikshitha/meeting-recorder/browser"
	"github.com/nikshitha/meeting-recorder/config"
	"github.com/nikshitha/meeting-recorder/logger"
	"github.com/nikshitha/meeting-recorder/meeting"
	"github.com/nikshitha/meeting-recorder/session"
	"github.com/nikshitha/meeting-recorder/stealth"
	"github.com/nikshitha/meeting-recorder/storage"
)

const defaultMeetingURL = "https://meet.google.com/test-meeting"

// teardownTimeout bounds leave and close once the run is over or interrupted
const teardownTimeout = 30 * time.Second

var errJoinFailed = errors.New("failed to join meeting")

// Application holds all components of the recorder
type Application struct {
	config  *config.Config
	logger  *logger.Logger
	stealth *stealth.StealthManager
	browser *browser.Browser
	db      *storage.Database
}

// Command line flags
var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	mode       = flag.String("mode", "record", "Run mode: record, history, probe")
	name       = flag.String("name", "", "Display name used when joining")
	provider   = flag.String("provider", "", "Meeting provider: meet, zoom, teams, generic (default: detect from URL)")
	noRecord   = flag.Bool("no-record", false, "Join and wait without capturing audio")
	limit      = flag.Int("limit", 20, "Number of sessions shown in history mode")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [meeting-url] [duration-seconds]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Note: could not read .env file: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if *name != "" {
		cfg.Meeting.DisplayName = *name
	}
	if *provider != "" {
		if _, err := meeting.ParseProvider(*provider); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		cfg.Meeting.Provider = *provider
	}

	meetingURL, duration, err := parseArgs(flag.Args(), cfg.RecordingDuration())
	if err != nil {
		fmt.Println(err)
		flag.Usage()
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	app, err := NewApplication(cfg, log)
	if err != nil {
		log.Errorf("Failed to initialize application: %v", err)
		os.Exit(1)
	}
	defer app.Close()

	// Interrupts cancel the run; teardown still finalises the recording
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "record":
		err = app.Record(ctx, meetingURL, duration)
	case "history":
		err = app.ShowHistory(*limit)
	case "probe":
		err = app.Probe(ctx, meetingURL)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}

	if err != nil {
		log.Errorf("Application error: %v", err)
		app.Close()
		os.Exit(1)
	}

	log.Info("Application completed successfully")
}

// parseArgs reads the optional positional meeting URL and duration in seconds.
// A duration that is not a positive integer falls back to defaultDuration.
func parseArgs(args []string, defaultDuration time.Duration) (string, time.Duration, error) {
	meetingURL := defaultMeetingURL
	duration := defaultDuration

	if len(args) > 0 && args[0] != "" {
		meetingURL = args[0]
	}
	if len(args) > 1 {
		if secs, err := strconv.Atoi(args[1]); err == nil && secs > 0 {
			duration = time.Duration(secs) * time.Second
		} else {
			fmt.Printf("Ignoring duration %q, using %s\n", args[1], defaultDuration)
		}
	}
	if len(args) > 2 {
		return "", 0, fmt.Errorf("too many arguments")
	}

	return meetingURL, duration, nil
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *config.Config, log *logger.Logger) (*Application, error) {
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	stealthMgr := stealth.NewStealthManager(&cfg.Stealth, log)

	return &Application{
		config:  cfg,
		logger:  log,
		stealth: stealthMgr,
		browser: browser.NewBrowser(cfg, log, stealthMgr),
		db:      db,
	}, nil
}

func (app *Application) launch(ctx context.Context) (meeting.Page, error) {
	page, err := app.browser.Launch(ctx)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Record runs one session: join, record for duration, leave, close.
func (app *Application) Record(ctx context.Context, meetingURL string, duration time.Duration) (runErr error) {
	s := session.New(app.config, app.logger, app.launch)
	log := app.logger.WithSession(s.ID())

	log.Infof("Target: %s for %s", meetingURL, duration)

	if err := s.Start(ctx); err != nil {
		return err
	}

	journal := &storage.SessionRecord{
		ID:          s.ID(),
		Provider:    string(meeting.Detect(meetingURL)),
		MeetingURL:  meetingURL,
		DisplayName: app.config.Meeting.DisplayName,
		StartedAt:   time.Now(),
	}
	if err := app.db.SaveSession(journal); err != nil {
		log.WithError(err).Warn("Failed to journal session")
	}

	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		defer cancel()

		if journal.Joined {
			s.Leave(teardownCtx)
		}
		if err := s.Close(teardownCtx); err != nil {
			log.WithError(err).Warn("Browser teardown failed")
		}

		app.journalArtifacts(s)
		if err := app.db.FinishSession(s.ID(), time.Now(), runErr); err != nil {
			log.WithError(err).Warn("Failed to finish session journal")
		}
	}()

	journal.Joined = s.Join(ctx, meetingURL)
	journal.Provider = string(s.Provider())
	journal.JoinClicked = s.JoinClicked()
	if err := app.db.SaveSession(journal); err != nil {
		log.WithError(err).Warn("Failed to journal session")
	}

	if !journal.Joined {
		return errJoinFailed
	}

	grace := time.Duration(app.config.Recording.GraceSeconds) * time.Second
	waitCtx, cancel := context.WithTimeout(ctx, duration+grace)
	defer cancel()

	if *noRecord {
		<-waitCtx.Done()
		return nil
	}

	path, err := s.Record(waitCtx, duration)
	if err != nil {
		// Capture permission depends on the browser environment; stay in the
		// call so the session still ends cleanly.
		log.WithError(err).Error("Recording did not start")
		<-waitCtx.Done()
		return nil
	}
	log.WithField("path", path).Info("Recording in progress")

	if err := s.Wait(waitCtx); err != nil {
		log.WithError(err).Warn("Stopped waiting for recording")
	}
	return nil
}

// journalArtifacts stores every artifact the session wrote
func (app *Application) journalArtifacts(s *session.Session) {
	for _, a := range s.Artifacts() {
		_, err := app.db.SaveRecording(&storage.RecordingRecord{
			SessionID: s.ID(),
			Path:      a.Path,
			SizeBytes: a.Size,
			StartedAt: a.StartedAt,
			StoppedAt: a.StoppedAt,
		})
		if err != nil {
			app.logger.WithError(err).Warn("Failed to journal recording")
		}
	}
}

// ShowHistory prints recent sessions and their recordings
func (app *Application) ShowHistory(limit int) error {
	sessions, err := app.db.GetRecentSessions(limit)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	if len(sessions) == 0 {
		app.logger.Info("No sessions recorded yet")
		return nil
	}

	app.logger.Info("=== Recent Sessions ===")
	for _, s := range sessions {
		status := "joined"
		if !s.Joined {
			status = "not joined"
		}
		if s.Error != "" {
			status += " (" + s.Error + ")"
		}
		app.logger.Infof("%s  %-7s %s  %s", s.StartedAt.Local().Format("2006-01-02 15:04"), s.Provider, s.MeetingURL, status)

		recordings, err := app.db.GetRecordings(s.ID)
		if err != nil {
			return fmt.Errorf("failed to load recordings: %w", err)
		}
		for _, r := range recordings {
			app.logger.Infof("    %s  %d bytes  %s", r.Path, r.SizeBytes, r.StoppedAt.Sub(r.StartedAt).Round(time.Second))
		}
	}
	app.logger.Info("=======================")
	return nil
}

// Probe opens the meeting page and lists its inputs and buttons without
// joining, for checking provider selectors against the live UI.
func (app *Application) Probe(ctx context.Context, meetingURL string) error {
	page, err := app.browser.Launch(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, app.config.GetTimeout())
	defer cancel()
	if err := page.Navigate(navCtx, meetingURL); err != nil {
		return err
	}

	controls, err := page.Probe(ctx)
	if err != nil {
		return err
	}

	app.logger.Infof("Found %d controls on %s", len(controls), meetingURL)
	for i, c := range controls {
		app.logger.Infof("  %2d. %s", i+1, c)
	}
	return nil
}

// Close cleans up application resources
func (app *Application) Close() {
	if app.db != nil {
		app.db.Close()
		app.db = nil
	}
}
