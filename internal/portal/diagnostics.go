package portal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/IshaanNene/portalwatch/internal/automation"
	"github.com/IshaanNene/portalwatch/internal/snapshot"
)

// diagnosticsTimeout bounds the whole capture.
const diagnosticsTimeout = 10 * time.Second

// Diagnostics is what could be recorded about the page at a failure.
type Diagnostics struct {
	URL        string
	Title      string
	Screenshot string
	Snapshot   string
}

// Capture records the current URL, title, a screenshot and a compressed
// HTML snapshot of the page into dir. It is best effort: each failure is
// logged and leaves the corresponding field empty. Capture still runs when
// ctx has been cancelled.
func Capture(ctx context.Context, d automation.Driver, dir, name string, logger *slog.Logger) Diagnostics {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsTimeout)
	defer cancel()

	var diag Diagnostics
	var err error

	if diag.URL, err = d.CurrentURL(ctx); err != nil {
		logger.Warn("diagnostics: current url unavailable", "error", err)
	}
	if diag.Title, err = d.Title(ctx); err != nil {
		logger.Warn("diagnostics: title unavailable", "error", err)
	}

	base := filepath.Join(dir, fmt.Sprintf("%s-%s", name, time.Now().UTC().Format("20060102-150405")))

	shot := base + ".png"
	if err := d.Screenshot(ctx, shot); err != nil {
		logger.Warn("diagnostics: screenshot failed", "error", err)
	} else {
		diag.Screenshot = shot
	}

	page, err := d.HTML(ctx)
	if err != nil {
		logger.Warn("diagnostics: page html unavailable", "error", err)
		return diag
	}
	snap := base + ".html.br"
	if err := snapshot.Write(snap, page); err != nil {
		logger.Warn("diagnostics: snapshot failed", "error", err)
	} else {
		diag.Snapshot = snap
	}

	logger.Info("diagnostics captured",
		"url", diag.URL,
		"title", diag.Title,
		"screenshot", diag.Screenshot,
		"snapshot", diag.Snapshot,
	)
	return diag
}
