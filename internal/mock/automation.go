// Package mock provides test doubles for the automation and storage interfaces.
package mock

import (
	"context"
	"errors"
	"time"

	"github.com/IshaanNene/portalwatch/internal/automation"
)

var (
	_ automation.Driver  = (*Driver)(nil)
	_ automation.Element = (*Element)(nil)
)

// Driver is a mock implementation of automation.Driver. Nil function
// fields fall back to harmless zero behavior.
type Driver struct {
	NavigateFn   func(ctx context.Context, url string) error
	WaitForFn    func(ctx context.Context, kind automation.SelectorKind, selector string, timeout time.Duration) (automation.Element, error)
	FindFn       func(ctx context.Context, kind automation.SelectorKind, selector string) ([]automation.Element, error)
	EvalFn       func(ctx context.Context, js string, args ...any) (automation.Value, error)
	ScreenshotFn func(ctx context.Context, path string) error

	URL      string
	PageHTML string
	PageName string
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if d.NavigateFn == nil {
		return nil
	}
	return d.NavigateFn(ctx, url)
}

func (d *Driver) WaitFor(ctx context.Context, kind automation.SelectorKind, selector string, timeout time.Duration) (automation.Element, error) {
	if d.WaitForFn == nil {
		return nil, errors.New("mock: element not found")
	}
	return d.WaitForFn(ctx, kind, selector, timeout)
}

func (d *Driver) Find(ctx context.Context, kind automation.SelectorKind, selector string) ([]automation.Element, error) {
	if d.FindFn == nil {
		return nil, nil
	}
	return d.FindFn(ctx, kind, selector)
}

func (d *Driver) Eval(ctx context.Context, js string, args ...any) (automation.Value, error) {
	if d.EvalFn == nil {
		return automation.NewValue(nil), nil
	}
	return d.EvalFn(ctx, js, args...)
}

func (d *Driver) Screenshot(ctx context.Context, path string) error {
	if d.ScreenshotFn == nil {
		return nil
	}
	return d.ScreenshotFn(ctx, path)
}

func (d *Driver) CurrentURL(context.Context) (string, error) { return d.URL, nil }
func (d *Driver) Title(context.Context) (string, error)      { return d.PageName, nil }
func (d *Driver) HTML(context.Context) (string, error)       { return d.PageHTML, nil }

// Element is a mock DOM element with fixed properties. It records input
// and clicks.
type Element struct {
	Label    string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	Pos      automation.Point

	TextErr      error
	ClickErr     error
	ScriptErr    error
	Typed        []string
	Clicks       int
	ScriptClicks int
}

func (e *Element) Text(context.Context) (string, error) {
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.Label, nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) Displayed(context.Context) (bool, error) { return !e.Hidden, nil }
func (e *Element) Enabled(context.Context) (bool, error)   { return !e.Disabled, nil }

func (e *Element) Location(context.Context) (automation.Point, error) { return e.Pos, nil }

func (e *Element) Input(_ context.Context, text string) error {
	e.Typed = append(e.Typed, text)
	return nil
}

func (e *Element) Click(context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	return nil
}

func (e *Element) ScriptClick(context.Context) error {
	if e.ScriptErr != nil {
		return e.ScriptErr
	}
	e.ScriptClicks++
	return nil
}

// Elements converts mock elements to the interface slice Find returns.
func Elements(els ...*Element) []automation.Element {
	out := make([]automation.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}
