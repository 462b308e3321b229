// Package snapshot reads and writes saved copies of the feed page and
// exposes them through the same element-finding interface as a live
// browser, so extraction can be replayed offline.
package snapshot

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/portalwatch/internal/automation"
)

// ErrReadOnly is returned for interactions a saved page cannot perform.
var ErrReadOnly = errors.New("snapshot: page is read-only")

var _ automation.Driver = (*Document)(nil)

// Document is a parsed snapshot.
type Document struct {
	root   *html.Node
	doc    *goquery.Document
	source string
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}, nil
}

// Load opens a snapshot file. Files ending in .br or .gz are decompressed.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := decompress(f, path)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}

	d, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		d.source = "file://" + filepath.ToSlash(abs)
	}
	return d, nil
}

func decompress(r io.Reader, path string) (io.Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".br":
		return brotli.NewReader(r), nil
	case ".gz":
		return gzip.NewReader(r)
	default:
		return r, nil
	}
}

// Write saves page HTML to path, creating parent directories. A path ending
// in .br is brotli-compressed.
func Write(path, page string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.WriteCloser = nopCloser{f}
	if strings.EqualFold(filepath.Ext(path), ".br") {
		w = brotli.NewWriterLevel(f, brotli.BestCompression)
	}

	if _, err := io.WriteString(w, page); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return f.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Find returns matching elements in document order.
func (d *Document) Find(_ context.Context, kind automation.SelectorKind, selector string) ([]automation.Element, error) {
	var nodes []*html.Node
	switch kind {
	case automation.SelectorXPath:
		found, err := htmlquery.QueryAll(d.root, selector)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", selector, err)
		}
		nodes = found
	default:
		nodes = d.doc.Find(selector).Nodes
	}

	out := make([]automation.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &Element{node: n}
	}
	return out, nil
}

// WaitFor returns the first match immediately; a snapshot never changes.
func (d *Document) WaitFor(ctx context.Context, kind automation.SelectorKind, selector string, _ time.Duration) (automation.Element, error) {
	els, err := d.Find(ctx, kind, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("snapshot: no element matches %q", selector)
	}
	return els[0], nil
}

func (d *Document) Navigate(context.Context, string) error { return ErrReadOnly }

func (d *Document) Eval(context.Context, string, ...any) (automation.Value, error) {
	return automation.NewValue(nil), ErrReadOnly
}

func (d *Document) Screenshot(context.Context, string) error { return ErrReadOnly }

func (d *Document) CurrentURL(context.Context) (string, error) { return d.source, nil }

func (d *Document) Title(context.Context) (string, error) {
	n := htmlquery.FindOne(d.root, "//title")
	if n == nil {
		return "", nil
	}
	return strings.TrimSpace(htmlquery.InnerText(n)), nil
}

func (d *Document) HTML(context.Context) (string, error) {
	return htmlquery.OutputHTML(d.root, true), nil
}

// Element is a node of a snapshot.
type Element struct {
	node *html.Node
}

// Text renders the node's text the way a browser lays it out: block
// elements and <br> start new lines, whitespace runs collapse, and script
// and style content is omitted.
func (e *Element) Text(context.Context) (string, error) {
	return Text(e.node), nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

// Displayed reports false for nodes hidden by attribute or inline style.
func (e *Element) Displayed(context.Context) (bool, error) {
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			switch a.Key {
			case "hidden":
				return false, nil
			case "style":
				style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
				if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	_, disabled, _ := e.Attribute(ctx, "disabled")
	return !disabled, nil
}

// Location has no layout to consult and reports the origin.
func (e *Element) Location(context.Context) (automation.Point, error) {
	return automation.Point{}, nil
}

func (e *Element) Input(context.Context, string) error { return ErrReadOnly }
func (e *Element) Click(context.Context) error         { return ErrReadOnly }
func (e *Element) ScriptClick(context.Context) error   { return ErrReadOnly }
