package poller_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/events"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/metrics"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/poller"
)

// scripted returns one canned snapshot per call.
type scripted struct {
	calls     atomic.Int32
	snapshots [][]marketplace.JobView
}

func (s *scripted) Snapshot(context.Context) ([]marketplace.JobView, error) {
	i := int(s.calls.Add(1)) - 1
	if i >= len(s.snapshots) {
		i = len(s.snapshots) - 1
	}
	return s.snapshots[i], nil
}

func TestWatcher_RefreshDeliversNotices(t *testing.T) {
	src := &scripted{snapshots: [][]marketplace.JobView{
		{view("job-1", "finding_pros", 0)},
		{view("job-1", "select_service_provider", 1)},
		{view("job-1", "select_service_provider", 1)},
	}}
	col := &poller.Collector{}
	w := poller.New(src, nil, col)

	for i := 0; i < 3; i++ {
		if err := w.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh #%d: %v", i, err)
		}
	}
	got := col.Notices()
	if len(got) != 1 || got[0].Kind != poller.NoticeSelectPro || got[0].Job.ServiceID != "job-1" {
		t.Errorf("notices = %+v, want one select_pro for job-1", got)
	}
	if latest := w.Latest(); len(latest) != 1 || latest[0].BidCount != 1 {
		t.Errorf("latest = %+v", latest)
	}
}

func TestWatcher_DropsStaleResponse(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	src := poller.SourceFunc(func(ctx context.Context) ([]marketplace.JobView, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return []marketplace.JobView{view("job-1", "finding_pros", 0)}, nil
		}
		return []marketplace.JobView{view("job-1", "select_service_provider", 2)}, nil
	})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	w := poller.New(src, nil, &poller.Collector{}, poller.WithMetrics(m))

	slow := make(chan error, 1)
	go func() { slow <- w.Refresh(context.Background()) }()
	<-entered

	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("fast Refresh: %v", err)
	}
	close(release)
	if err := <-slow; err != nil {
		t.Fatalf("slow Refresh: %v", err)
	}

	latest := w.Latest()
	if len(latest) != 1 || latest[0].Status != marketplace.StatusSelectServiceProvider {
		t.Errorf("latest = %+v, want the newer select_service_provider snapshot", latest)
	}
	if got := testutil.ToFloat64(m.PollCycles.WithLabelValues("stale")); got != 1 {
		t.Errorf("stale cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PollCycles.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok cycles = %v, want 1", got)
	}
}

func TestWatcher_SourceError(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	src := poller.SourceFunc(func(context.Context) ([]marketplace.JobView, error) {
		return nil, errors.New("network down")
	})
	w := poller.New(src, nil, &poller.Collector{}, poller.WithMetrics(m))

	if err := w.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := testutil.ToFloat64(m.PollCycles.WithLabelValues("error")); got != 1 {
		t.Errorf("error cycles = %v, want 1", got)
	}
}

func TestWatcher_StartRefreshesImmediately(t *testing.T) {
	polled := make(chan struct{}, 1)
	src := poller.SourceFunc(func(context.Context) ([]marketplace.JobView, error) {
		select {
		case polled <- struct{}{}:
		default:
		}
		return nil, nil
	})
	w := poller.New(src, nil, nil, poller.WithInterval(time.Hour))

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	select {
	case <-polled:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not trigger an immediate refresh")
	}
}

func TestEventNotifier(t *testing.T) {
	rec := &events.Recorder{}
	n := poller.Notifiers{poller.NewEventNotifier(rec), &poller.Collector{}}

	n.Notify(context.Background(), poller.Notice{Kind: poller.NoticeSelectPro, Job: view("job-1", "select_service_provider", 1)})
	n.Notify(context.Background(), poller.Notice{Kind: poller.NoticeJobCompleted, Job: view("job-1", "completed", 0)})

	got := rec.Types()
	if len(got) != 2 || got[0] != events.TypeSelectPro || got[1] != events.TypeJobCompleted {
		t.Errorf("events = %v", got)
	}
}
