package poller_test

import (
	"testing"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/poller"
)

func view(id string, status string, bids int) marketplace.JobView {
	return marketplace.JobView{
		Job:      marketplace.Job{ServiceID: id, Status: marketplace.Status(status)},
		BidCount: bids,
	}
}

func kinds(ns []poller.Notice) []poller.NoticeKind {
	out := make([]poller.NoticeKind, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Kind)
	}
	return out
}

func TestTracker_SelectProFiresOnce(t *testing.T) {
	tr := poller.NewTracker(nil)
	seq := []marketplace.JobView{
		view("job-1", "finding_pros", 0),
		view("job-1", "select_service_provider", 1),
		view("job-1", "select_service_provider", 2),
		view("job-1", "select_service_provider", 2),
	}
	var fired int
	for i, v := range seq {
		ns := tr.Observe([]marketplace.JobView{v})
		fired += len(ns)
		if i == 1 && (len(ns) != 1 || ns[0].Kind != poller.NoticeSelectPro) {
			t.Errorf("poll %d: notices = %v, want one select_pro", i, kinds(ns))
		}
	}
	if fired != 1 {
		t.Errorf("notices fired = %d, want 1", fired)
	}
}

func TestTracker_CaseInsensitive(t *testing.T) {
	tr := poller.NewTracker(nil)
	tr.Observe([]marketplace.JobView{view("job-1", "Finding_Pros", 0)})
	ns := tr.Observe([]marketplace.JobView{view("job-1", "SELECT_SERVICE_PROVIDER", 1)})
	if len(ns) != 1 || ns[0].Kind != poller.NoticeSelectPro {
		t.Fatalf("notices = %v, want one select_pro", kinds(ns))
	}
	if ns[0].Job.Status != marketplace.StatusSelectServiceProvider {
		t.Errorf("notice status = %q, want normalized", ns[0].Job.Status)
	}
}

func TestTracker_NoPromptWithoutEdge(t *testing.T) {
	tr := poller.NewTracker(nil)
	// First observation already past finding_pros: no edge seen.
	if ns := tr.Observe([]marketplace.JobView{view("job-1", "select_service_provider", 1)}); len(ns) != 0 {
		t.Errorf("notices = %v, want none", kinds(ns))
	}
	// A confirmed job jumping from finding_pros (AutoFill) is not a select-pro edge.
	tr.Observe([]marketplace.JobView{view("job-2", "finding_pros", 0)})
	if ns := tr.Observe([]marketplace.JobView{view("job-2", "confirmed", 0)}); len(ns) != 0 {
		t.Errorf("notices = %v, want none", kinds(ns))
	}
}

func TestTracker_RevertDoesNotRePrompt(t *testing.T) {
	tr := poller.NewTracker(nil)
	for _, st := range []string{"finding_pros", "select_service_provider", "finding_pros", "select_service_provider"} {
		tr.Observe([]marketplace.JobView{view("job-1", st, 1)})
	}
	if !tr.Session().Prompted("job-1") {
		t.Fatal("job-1 should be marked as prompted")
	}

	s := poller.NewSession()
	tr = poller.NewTracker(s)
	var fired int
	for _, st := range []string{"finding_pros", "select_service_provider", "finding_pros", "select_service_provider"} {
		fired += len(tr.Observe([]marketplace.JobView{view("job-1", st, 1)}))
	}
	if fired != 1 {
		t.Errorf("notices fired = %d across revert, want 1", fired)
	}
}

func TestTracker_CompletedOnce(t *testing.T) {
	tr := poller.NewTracker(nil)
	var got []poller.NoticeKind
	for _, st := range []string{"in_progress", "completed", "completed"} {
		got = append(got, kinds(tr.Observe([]marketplace.JobView{view("job-1", st, 0)}))...)
	}
	if len(got) != 1 || got[0] != poller.NoticeJobCompleted {
		t.Errorf("notices = %v, want one job_completed", got)
	}
}

func TestTracker_ResetOnSignOut(t *testing.T) {
	tr := poller.NewTracker(nil)
	tr.Observe([]marketplace.JobView{view("job-1", "finding_pros", 0)})
	tr.Observe([]marketplace.JobView{view("job-1", "select_service_provider", 1)})

	tr.Reset()
	if tr.Session().Prompted("job-1") {
		t.Error("Reset should clear prompted jobs")
	}
	tr.Observe([]marketplace.JobView{view("job-1", "finding_pros", 0)})
	if ns := tr.Observe([]marketplace.JobView{view("job-1", "select_service_provider", 1)}); len(ns) != 1 {
		t.Errorf("after reset notices = %v, want one select_pro", kinds(ns))
	}
}

func TestTracker_SkipsUnknownStatus(t *testing.T) {
	tr := poller.NewTracker(nil)
	if ns := tr.Observe([]marketplace.JobView{view("job-1", "archived", 0)}); len(ns) != 0 {
		t.Errorf("notices = %v, want none", kinds(ns))
	}
}
