package scanner

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressCallback defines the interface for progress reporting during file scans.
type ProgressCallback interface {
	// OnStart is called when processing begins with the total number of items.
	OnStart(total int)

	// OnProgress is called after each item with current progress.
	OnProgress(current, total int)

	// OnComplete is called when processing is finished.
	OnComplete()

	// OnError is called when an item fails.
	OnError(current int, err error)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(total int)              {}
func (NoOpProgressCallback) OnProgress(current, total int)  {}
func (NoOpProgressCallback) OnComplete()                    {}
func (NoOpProgressCallback) OnError(current int, err error) {}

// BarProgressCallback draws a terminal progress bar.
type BarProgressCallback struct {
	mu     sync.Mutex
	writer io.Writer
	desc   string
	bar    *progressbar.ProgressBar
}

// NewBarProgressCallback creates a progress bar writing to w (stderr when nil).
func NewBarProgressCallback(w io.Writer, description string) *BarProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &BarProgressCallback{writer: w, desc: description}
}

func (c *BarProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(c.desc),
		progressbar.OptionSetWriter(c.writer),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

func (c *BarProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		_ = c.bar.Set(current)
	}
}

func (c *BarProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		_ = c.bar.Finish()
	}
}

func (c *BarProgressCallback) OnError(current int, err error) {}

// LogProgressCallback logs progress updates using slog.
type LogProgressCallback struct {
	mu        sync.Mutex
	logger    *slog.Logger
	interval  int // log every N items
	lastLog   int
	startTime time.Time
}

// NewLogProgressCallback creates a new log-based progress reporter.
func NewLogProgressCallback(logger *slog.Logger, interval int) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10
	}
	return &LogProgressCallback{logger: logger, interval: interval}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startTime = time.Now()
	l.lastLog = 0
	l.logger.Info("scan started", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current-l.lastLog < l.interval && current != total {
		return
	}
	l.lastLog = current
	l.logger.Info("scan progress", "current", current, "total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Info("scan completed", "elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Error("scan error", "current", current, "error", err)
}
