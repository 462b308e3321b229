// Package portal signs in to the placement portal.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/portalwatch/internal/automation"
	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/types"
)

// Login form selectors.
const (
	BodySelector     = "body"
	EmailSelector    = "input[type='email']"
	PasswordSelector = "input[type='password']"
	SubmitSelector   = "button[type='submit']"
)

// Login stages reported in types.LoginError.
const (
	StageNavigate = "navigate"
	StagePage     = "page"
	StageForm     = "form"
	StageSubmit   = "submit"
	StageConfirm  = "confirm"
)

// Authenticator performs the portal login.
type Authenticator struct {
	cfg     config.PortalConfig
	diagDir string
	logger  *slog.Logger

	// Sleep is used for the post-submit pause. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewAuthenticator creates an Authenticator. Failure diagnostics are
// written to diagDir.
func NewAuthenticator(cfg config.PortalConfig, diagDir string, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		cfg:     cfg,
		diagDir: diagDir,
		logger:  logger.With("component", "portal"),
		Sleep:   automation.Sleep,
	}
}

// Login navigates to the portal, submits the credentials and waits for the
// feed to appear. On failure it captures diagnostics and returns a
// *types.LoginError.
func (a *Authenticator) Login(ctx context.Context, d automation.Driver) error {
	stage, err := a.login(ctx, d)
	if err == nil {
		a.logger.Info("login successful, feed loaded")
		return nil
	}

	a.logger.Error("login failed", "stage", stage, "error", err)
	diag := Capture(ctx, d, a.diagDir, "login", a.logger)
	return &types.LoginError{
		Stage:      stage,
		URL:        diag.URL,
		Title:      diag.Title,
		Screenshot: diag.Screenshot,
		Err:        err,
	}
}

func (a *Authenticator) login(ctx context.Context, d automation.Driver) (string, error) {
	a.logger.Info("opening portal", "url", a.cfg.URL)
	if err := d.Navigate(ctx, a.cfg.URL); err != nil {
		return StageNavigate, err
	}

	if _, err := d.WaitFor(ctx, automation.SelectorCSS, BodySelector, a.cfg.PageTimeout); err != nil {
		return StagePage, fmt.Errorf("page body: %w", err)
	}
	if title, err := d.Title(ctx); err == nil {
		a.logger.Debug("page loaded", "title", title)
	}

	email, err := d.WaitFor(ctx, automation.SelectorCSS, EmailSelector, a.cfg.FieldTimeout)
	if err != nil {
		return StageForm, fmt.Errorf("email field: %w", err)
	}
	password, err := first(ctx, d, PasswordSelector)
	if err != nil {
		return StageForm, fmt.Errorf("password field: %w", err)
	}
	a.logPlaceholders(ctx, email, password)

	if err := email.Input(ctx, a.cfg.Email); err != nil {
		return StageForm, fmt.Errorf("enter email: %w", err)
	}
	if err := password.Input(ctx, a.cfg.Password); err != nil {
		return StageForm, fmt.Errorf("enter password: %w", err)
	}
	a.logger.Debug("credentials entered")

	submit, err := first(ctx, d, SubmitSelector)
	if err != nil {
		return StageSubmit, fmt.Errorf("submit button: %w", err)
	}
	if _, err := automation.ClickWithFallback(ctx, submit); err != nil {
		return StageSubmit, err
	}
	a.logger.Info("login submitted, waiting for feed")

	if err := a.Sleep(ctx, a.cfg.PostSubmitDelay); err != nil {
		return StageConfirm, err
	}
	if _, err := d.WaitFor(ctx, automation.SelectorCSS, a.cfg.SuccessSelector, a.cfg.LoginTimeout); err != nil {
		return StageConfirm, fmt.Errorf("feed marker %q: %w", a.cfg.SuccessSelector, err)
	}
	return "", nil
}

func (a *Authenticator) logPlaceholders(ctx context.Context, email, password automation.Element) {
	placeholder := func(el automation.Element) string {
		if v, ok, err := el.Attribute(ctx, "placeholder"); err == nil && ok {
			return v
		}
		return "No placeholder"
	}
	a.logger.Debug("login form found",
		"email_placeholder", placeholder(email),
		"password_placeholder", placeholder(password),
	)
}

var errNoElement = errors.New("element not found")

func first(ctx context.Context, d automation.Driver, selector string) (automation.Element, error) {
	els, err := d.Find(ctx, automation.SelectorCSS, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, errNoElement
	}
	return els[0], nil
}
