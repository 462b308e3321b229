package browser

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/IshaanNene/portalwatch/internal/automation"
)

// Session is a started browser with one working page.
type Session struct {
	Browser *rod.Browser
	Page    *rod.Page

	// Attempt names the startup attempt that produced the session.
	Attempt string

	launcher *launcher.Launcher
	owned    bool
	logger   *slog.Logger

	once     sync.Once
	closeErr error
}

// Driver returns the automation driver for the session's page.
func (s *Session) Driver() automation.Driver {
	return automation.NewRodDriver(s.Page, s.logger)
}

// Close releases the page, the browser if this process started it, and the
// launcher. It is safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		var errs []error
		if s.Page != nil && !s.owned {
			errs = append(errs, s.Page.Close())
		}
		if s.Browser != nil && s.owned {
			errs = append(errs, s.Browser.Close())
		}
		if s.launcher != nil {
			s.launcher.Kill()
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
