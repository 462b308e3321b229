package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var (
	_ Driver  = (*RodDriver)(nil)
	_ Element = (*rodElement)(nil)
)

// RodDriver implements Driver on a Rod page.
type RodDriver struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewRodDriver wraps a Rod page.
func NewRodDriver(page *rod.Page, logger *slog.Logger) *RodDriver {
	return &RodDriver{
		page:   page,
		logger: logger.With("component", "rod_driver"),
	}
}

// Navigate loads url and waits for the load event.
func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	p := d.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		d.logger.Warn("wait load failed, continuing", "url", url, "error", err)
	}
	return nil
}

// WaitFor polls for selector until it appears or timeout elapses.
func (d *RodDriver) WaitFor(ctx context.Context, kind SelectorKind, selector string, timeout time.Duration) (Element, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := d.page.Context(tctx)
	var (
		el  *rod.Element
		err error
	)
	if kind == SelectorXPath {
		el, err = p.ElementX(selector)
	} else {
		el, err = p.Element(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("wait for %s %q: %w", kind, selector, err)
	}
	return &rodElement{el: el.Context(ctx)}, nil
}

// Find returns all elements matching selector without waiting.
func (d *RodDriver) Find(ctx context.Context, kind SelectorKind, selector string) ([]Element, error) {
	p := d.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if kind == SelectorXPath {
		els, err = p.ElementsX(selector)
	} else {
		els, err = p.Elements(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %q: %w", kind, selector, err)
	}

	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

// Eval runs js, a function expression, with args. Element arguments are
// passed to the page by reference.
func (d *RodDriver) Eval(ctx context.Context, js string, args ...any) (Value, error) {
	res, err := d.page.Context(ctx).Eval(js, evalArgs(args)...)
	if err != nil {
		return Value{}, err
	}
	return NewValue(res.Value.Val()), nil
}

// evalArgs converts element arguments to the remote object references Rod
// sends as object IDs. Other values are sent as JSON.
func evalArgs(args []any) []any {
	params := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(*rodElement); ok && el.el != nil {
			params[i] = el.el.Object
			continue
		}
		params[i] = a
	}
	return params
}

// Screenshot captures the full page as PNG into path.
func (d *RodDriver) Screenshot(ctx context.Context, path string) error {
	img, err := d.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	return os.WriteFile(path, img, 0o644)
}

func (d *RodDriver) CurrentURL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (d *RodDriver) Title(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (d *RodDriver) HTML(ctx context.Context) (string, error) {
	return d.page.Context(ctx).HTML()
}

// rodElement adapts *rod.Element to Element.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Displayed(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Enabled(ctx context.Context) (bool, error) {
	res, err := e.el.Context(ctx).Eval(`() => !this.disabled`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *rodElement) Location(ctx context.Context) (Point, error) {
	res, err := e.el.Context(ctx).Eval(`() => {
		const r = this.getBoundingClientRect();
		return { x: Math.round(r.left + window.scrollX), y: Math.round(r.top + window.scrollY) };
	}`)
	if err != nil {
		return Point{}, err
	}
	return Point{X: res.Value.Get("x").Int(), Y: res.Value.Get("y").Int()}, nil
}

// Input replaces the element's value with text.
func (e *rodElement) Input(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	// Not every input supports selection; typing still works.
	_ = el.SelectAllText()
	return el.Input(text)
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ScriptClick(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return err
}
