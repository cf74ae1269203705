// internal/browser/session.go
// A Session owns one headless browser tab driven over CDP. It implements
// both perception (schemas.ImageProvider) and actuation
// (schemas.ActionHandler) for the orchestration engine.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
	"github.com/xkilldash9x/tasker-cli/internal/config"
)

// Session is an active browser tab. Safe for the engine's sequential use;
// the mutex only guards the shot counter and close state.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	// artifactDir receives a numbered PNG per capture; empty disables
	// persistence.
	artifactDir string

	mu       sync.Mutex
	shots    int
	isClosed bool
}

var (
	_ schemas.ImageProvider = (*Session)(nil)
	_ schemas.ActionHandler = (*Session)(nil)
)

// NewSession launches a browser, opens a tab and navigates to the
// configured start URL. The returned session must be closed by the caller.
func NewSession(parentCtx context.Context, cfg config.BrowserConfig, artifactDir string, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	sessionID := uuid.NewString()
	s := &Session{
		id:          sessionID,
		ctx:         tabCtx,
		cancel:      cancel,
		logger:      logger.Named("browser").With(zap.String("session_id", sessionID)),
		cfg:         cfg,
		artifactDir: artifactDir,
	}

	// Starting the tab also launches the browser process.
	startCtx, startCancel := context.WithTimeout(tabCtx, cfg.NavigationTimeout)
	defer startCancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate(cfg.StartURL)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	s.logger.Info("Browser session started",
		zap.Bool("headless", cfg.Headless),
		zap.String("start_url", cfg.StartURL),
	)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Capture takes a screenshot of the current viewport. When an artifact
// directory is configured the PNG is also persisted as a numbered file.
func (s *Session) Capture(ctx context.Context) (schemas.Observation, error) {
	runCtx, cancel := s.combineContext(ctx)
	defer cancel()

	var png []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&png)); err != nil {
		return schemas.Observation{}, &CaptureError{Cause: err}
	}

	obs := schemas.Observation{PNG: png, Timestamp: time.Now()}

	if s.artifactDir != "" {
		s.mu.Lock()
		s.shots++
		n := s.shots
		s.mu.Unlock()

		path := filepath.Join(s.artifactDir, fmt.Sprintf("step_%04d.png", n))
		if err := os.WriteFile(path, png, 0o644); err != nil {
			// Persistence is best effort; the observation itself is intact.
			s.logger.Warn("Could not persist screenshot", zap.String("path", path), zap.Error(err))
		} else {
			obs.Path = path
		}
	}

	return obs, nil
}

// Dispatch performs the decided action against the tab.
func (s *Session) Dispatch(ctx context.Context, action schemas.Action) error {
	tasks, err := buildTasks(action, s.cfg.NavigationTimeout)
	if err != nil {
		return &DispatchError{ActionType: string(action.Type), Cause: err}
	}
	if len(tasks) == 0 {
		// FINISH carries no browser-side effect.
		return nil
	}

	runCtx, cancel := s.combineContext(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return &DispatchError{ActionType: string(action.Type), Cause: err}
	}
	return nil
}

// Close shuts down the tab and the browser process. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return
	}
	s.isClosed = true
	s.cancel()
	s.logger.Info("Browser session closed")
}

// combineContext derives a run context honoring both the session lifetime
// and the caller's context.
func (s *Session) combineContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
