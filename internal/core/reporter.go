package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Priority ranks a reported error.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityHighest
	PriorityBlocking
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	default:
		return "blocking"
	}
}

// Report is one recorded error.
type Report struct {
	Priority Priority
	Err      error
}

// Reporter collects errors for one route invocation and delivers the
// user-visible messages once.
type Reporter struct {
	logger   *zap.Logger
	reports  []Report
	messages []nav.Message
	flushed  bool
}

// NewReporter returns an empty reporter.
func NewReporter(logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{logger: logger}
}

// Item records a per-item failure. The caller continues its loop.
func (r *Reporter) Item(err error) {
	r.record(PriorityHighest, err)
	r.logger.Warn("item skipped", zap.Error(err))
}

// Log records a failure that is only logged.
func (r *Reporter) Log(priority Priority, err error) {
	r.record(priority, err)
	r.logger.Info("recovered error", zap.String("priority", priority.String()), zap.Error(err))
}

// Fail records a per-screen failure and queues a message for the user.
func (r *Reporter) Fail(err error) {
	if err == nil {
		return
	}
	r.record(PriorityBlocking, err)
	r.logger.Error("screen failed", zap.String("kind", string(KindOf(err))), zap.Error(err))
	r.messages = append(r.messages, nav.Message{
		Title:    failureTitle(err),
		Text:     err.Error(),
		Priority: PriorityBlocking.String(),
	})
}

// Message queues an informational message.
func (r *Reporter) Message(title string, text string) {
	r.messages = append(r.messages, nav.Message{Title: title, Text: text, Priority: PriorityMedium.String()})
}

// Reports returns every recorded error.
func (r *Reporter) Reports() []Report {
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Count returns the number of recorded errors of kind.
func (r *Reporter) Count(kind ErrorKind) int {
	n := 0
	for _, rep := range r.reports {
		if KindOf(rep.Err) == kind {
			n++
		}
	}
	return n
}

// Flush delivers queued messages through host. Only the first call has an
// effect; later calls return nil and deliver nothing.
func (r *Reporter) Flush(ctx context.Context, host ports.Host) ([]nav.Message, error) {
	if r.flushed {
		return nil, nil
	}
	r.flushed = true

	messages := append([]nav.Message(nil), r.messages...)
	if skipped := r.Count(KindItemBuild); skipped > 0 {
		messages = append(messages, nav.Message{
			Title:    "Some items could not be shown",
			Text:     fmt.Sprintf("%d item(s) skipped, see log for details", skipped),
			Priority: PriorityHighest.String(),
		})
	}
	if host == nil {
		return messages, nil
	}
	var errs []error
	for _, msg := range messages {
		if err := host.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return messages, errors.Join(errs...)
}

func (r *Reporter) record(priority Priority, err error) {
	if err == nil {
		return
	}
	r.reports = append(r.reports, Report{Priority: priority, Err: err})
}

func failureTitle(err error) string {
	switch KindOf(err) {
	case KindConnection:
		return "Connection error"
	case KindAuth:
		return "Login error"
	case KindNotFound, KindParam:
		return "Invalid path"
	case KindPlayback:
		return "Playback error"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Error"
	}
}
