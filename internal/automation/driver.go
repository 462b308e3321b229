// Package automation defines the browser capabilities the scraper consumes
// and implements them on top of Rod.
package automation

import (
	"context"
	"fmt"
	"time"
)

// SelectorKind selects how a selector string is interpreted.
type SelectorKind int

const (
	SelectorCSS SelectorKind = iota
	SelectorXPath
)

func (k SelectorKind) String() string {
	if k == SelectorXPath {
		return "xpath"
	}
	return "css"
}

// Point is a page-relative element position.
type Point struct {
	X, Y int
}

// Element is a handle to a live DOM element.
type Element interface {
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Location(ctx context.Context) (Point, error)
	Input(ctx context.Context, text string) error

	// Click performs a native mouse click.
	Click(ctx context.Context) error

	// ScriptClick dispatches a click from script, bypassing hit-testing.
	ScriptClick(ctx context.Context) error
}

// Finder locates elements. Results are in document order and may be empty.
type Finder interface {
	Find(ctx context.Context, kind SelectorKind, selector string) ([]Element, error)
}

// Driver is a single page of an automated browser session.
type Driver interface {
	Finder

	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until an element matching selector is present or timeout elapses.
	WaitFor(ctx context.Context, kind SelectorKind, selector string, timeout time.Duration) (Element, error)

	// Eval runs a script function with the given arguments. Element
	// arguments are passed to the page as DOM nodes.
	Eval(ctx context.Context, js string, args ...any) (Value, error)

	Screenshot(ctx context.Context, path string) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
}

// Value is the decoded result of a script evaluation.
type Value struct {
	raw any
}

// NewValue wraps a decoded script result.
func NewValue(v any) Value { return Value{raw: v} }

// Raw returns the decoded value.
func (v Value) Raw() any { return v.raw }

// Int returns the value as an int. Non-numeric values yield 0.
func (v Value) Int() int {
	switch n := v.raw.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// Bool returns the value as a bool. Non-boolean values yield false.
func (v Value) Bool() bool {
	b, _ := v.raw.(bool)
	return b
}

func (v Value) String() string {
	if s, ok := v.raw.(string); ok {
		return s
	}
	if v.raw == nil {
		return ""
	}
	return fmt.Sprint(v.raw)
}

// ClickWithFallback clicks el natively and falls back to a script click if
// the native click fails. scripted reports whether the fallback was used.
func ClickWithFallback(ctx context.Context, el Element) (scripted bool, err error) {
	if err := el.Click(ctx); err == nil {
		return false, nil
	}
	if err := el.ScriptClick(ctx); err != nil {
		return true, fmt.Errorf("script click: %w", err)
	}
	return true, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
