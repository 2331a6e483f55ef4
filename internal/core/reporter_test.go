package core

import (
	"context"
	"errors"
	"testing"

	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

func TestReporterFlushOnce(t *testing.T) {
	r := NewReporter(nil)
	r.Item(itemError("bad episode"))
	r.Log(PriorityLow, &Error{Kind: KindSort, Msg: "sort"})
	r.Fail(&Error{Kind: KindConnection, Msg: "server down"})

	host := &recordingHost{}
	msgs, err := r.Flush(context.Background(), host)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(msgs) != 2 || len(host.notified) != 2 {
		t.Fatalf("expected failure and skipped summary, got %+v", msgs)
	}
	if msgs[0].Title != "Connection error" || msgs[0].Priority != "blocking" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}

	msgs, err = r.Flush(context.Background(), host)
	if err != nil || msgs != nil || len(host.notified) != 2 {
		t.Fatalf("second flush must deliver nothing")
	}
	if len(r.Reports()) != 3 || r.Count(KindItemBuild) != 1 {
		t.Fatalf("unexpected reports: %+v", r.Reports())
	}
	if r.Reports()[0].Priority != PriorityHighest {
		t.Fatalf("item errors are recorded at highest priority")
	}
}

func TestReporterIgnoresNil(t *testing.T) {
	r := NewReporter(nil)
	r.Fail(nil)
	r.Item(nil)
	msgs, _ := r.Flush(context.Background(), nil)
	if len(msgs) != 0 || len(r.Reports()) != 0 {
		t.Fatalf("nil errors must not be reported")
	}
}

type failingHost struct {
	recordingHost
}

func (failingHost) Notify(ctx context.Context, msg nav.Message) error {
	return errors.New("gui gone")
}

func TestReporterFlushReportsDeliveryFailure(t *testing.T) {
	r := NewReporter(nil)
	r.Message("No results", "nothing")
	msgs, err := r.Flush(context.Background(), &failingHost{})
	if err == nil || len(msgs) != 1 {
		t.Fatalf("expected delivery error with the message returned, got %v %+v", err, msgs)
	}
}
