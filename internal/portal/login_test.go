package portal

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/portalwatch/internal/automation"
	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/mock"
	"github.com/IshaanNene/portalwatch/internal/snapshot"
	"github.com/IshaanNene/portalwatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// loginPage fakes the portal login form.
type loginPage struct {
	email    *mock.Element
	password *mock.Element
	submit   *mock.Element

	feedAppears bool
	noEmail     bool
	navErr      error

	waits       map[string]time.Duration
	screenshots []string
}

func newLoginPage() *loginPage {
	return &loginPage{
		email:       &mock.Element{Attrs: map[string]string{"placeholder": "Email"}},
		password:    &mock.Element{},
		submit:      &mock.Element{Label: "Login"},
		feedAppears: true,
		waits:       map[string]time.Duration{},
	}
}

func (p *loginPage) driver() *mock.Driver {
	cfg := config.DefaultConfig().Portal
	return &mock.Driver{
		URL:      cfg.URL,
		PageName: "Superset",
		PageHTML: `<html><head><title>Superset</title></head><body><form><input type="email"></form></body></html>`,
		NavigateFn: func(context.Context, string) error {
			return p.navErr
		},
		WaitForFn: func(_ context.Context, _ automation.SelectorKind, sel string, timeout time.Duration) (automation.Element, error) {
			p.waits[sel] = timeout
			switch {
			case sel == BodySelector:
				return &mock.Element{}, nil
			case sel == EmailSelector && !p.noEmail:
				return p.email, nil
			case sel == cfg.SuccessSelector && p.feedAppears && p.submit.Clicks+p.submit.ScriptClicks > 0:
				return &mock.Element{}, nil
			}
			return nil, errors.New("timed out waiting for " + sel)
		},
		FindFn: func(_ context.Context, _ automation.SelectorKind, sel string) ([]automation.Element, error) {
			switch sel {
			case PasswordSelector:
				return mock.Elements(p.password), nil
			case SubmitSelector:
				return mock.Elements(p.submit), nil
			}
			return nil, nil
		},
		ScreenshotFn: func(_ context.Context, path string) error {
			p.screenshots = append(p.screenshots, path)
			return nil
		},
	}
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *[]time.Duration) {
	cfg := config.DefaultConfig().Portal
	cfg.Email = "student@example.edu"
	cfg.Password = "hunter2"

	a := NewAuthenticator(cfg, t.TempDir(), testLogger)
	var sleeps []time.Duration
	a.Sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return a, &sleeps
}

func TestLoginSuccess(t *testing.T) {
	page := newLoginPage()
	a, sleeps := newTestAuthenticator(t)

	require.NoError(t, a.Login(context.Background(), page.driver()))
	assert.Equal(t, []string{"student@example.edu"}, page.email.Typed)
	assert.Equal(t, []string{"hunter2"}, page.password.Typed)
	assert.Equal(t, 1, page.submit.Clicks)
	assert.Equal(t, []time.Duration{3 * time.Second}, *sleeps)

	assert.Equal(t, 15*time.Second, page.waits[BodySelector])
	assert.Equal(t, 10*time.Second, page.waits[EmailSelector])
	assert.Equal(t, 15*time.Second, page.waits["div.px-5.pt-5.pb-0"])
	assert.Empty(t, page.screenshots)
}

func TestLoginScriptClickFallback(t *testing.T) {
	page := newLoginPage()
	page.submit.ClickErr = errors.New("element is covered")
	a, _ := newTestAuthenticator(t)

	require.NoError(t, a.Login(context.Background(), page.driver()))
	assert.Equal(t, 1, page.submit.ScriptClicks)
}

func TestLoginMissingForm(t *testing.T) {
	page := newLoginPage()
	page.noEmail = true
	a, _ := newTestAuthenticator(t)

	err := a.Login(context.Background(), page.driver())
	require.Error(t, err)

	var lerr *types.LoginError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, StageForm, lerr.Stage)
	assert.Equal(t, "Superset", lerr.Title)
	assert.Equal(t, config.DefaultConfig().Portal.URL, lerr.URL)
	require.Len(t, page.screenshots, 1)
	assert.Equal(t, page.screenshots[0], lerr.Screenshot)
	assert.True(t, strings.HasSuffix(lerr.Screenshot, ".png"))
	assert.Empty(t, page.email.Typed)
}

func TestLoginFeedNeverAppears(t *testing.T) {
	page := newLoginPage()
	page.feedAppears = false
	a, _ := newTestAuthenticator(t)

	err := a.Login(context.Background(), page.driver())

	var lerr *types.LoginError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, StageConfirm, lerr.Stage)
	assert.Contains(t, lerr.Error(), "div.px-5.pt-5.pb-0")
	assert.NotEmpty(t, lerr.Screenshot)
}

func TestLoginNavigateError(t *testing.T) {
	page := newLoginPage()
	page.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	a, _ := newTestAuthenticator(t)

	err := a.Login(context.Background(), page.driver())

	var lerr *types.LoginError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, StageNavigate, lerr.Stage)
	assert.ErrorIs(t, err, page.navErr)
}

func TestCaptureWritesSnapshot(t *testing.T) {
	page := newLoginPage()
	d := page.driver()
	d.ScreenshotFn = func(context.Context, string) error { return errors.New("target closed") }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	diag := Capture(ctx, d, t.TempDir(), "login", testLogger)
	assert.Empty(t, diag.Screenshot)
	assert.Equal(t, "Superset", diag.Title)
	require.NotEmpty(t, diag.Snapshot)
	assert.True(t, strings.HasSuffix(diag.Snapshot, ".html.br"))

	doc, err := snapshot.Load(diag.Snapshot)
	require.NoError(t, err)
	els, err := doc.Find(context.Background(), automation.SelectorCSS, EmailSelector)
	require.NoError(t, err)
	assert.Len(t, els, 1)
}
