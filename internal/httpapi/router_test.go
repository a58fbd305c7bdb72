package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/geofence"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/httpapi"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/metrics"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/places"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/pricing"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

type fakeEstimator struct {
	est *pricing.Estimate
	err error
}

func (f fakeEstimator) Estimate(context.Context, pricing.Request) (*pricing.Estimate, error) {
	return f.est, f.err
}

type fakePlaces struct{ fail bool }

func (f fakePlaces) Autocomplete(_ context.Context, q string) ([]places.Suggestion, error) {
	if f.fail {
		return nil, errors.New("upstream down")
	}
	return []places.Suggestion{{PlaceID: "p1", Description: q + ", New York, NY"}}, nil
}

func (f fakePlaces) Details(_ context.Context, id string) (*places.Place, error) {
	if id != "p1" {
		return nil, places.ErrNoPlace
	}
	return &places.Place{PlaceID: "p1", Coordinate: geofence.Coordinate{Lat: 40.7484, Lng: -73.9857}}, nil
}

type apiFixture struct {
	srv   *httptest.Server
	store *marketplace.MemStore
}

func newAPI(t *testing.T, est httpapi.Estimator, pf httpapi.PlaceFinder) *apiFixture {
	t.Helper()
	geo, err := geofence.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	reg := prometheus.NewRegistry()
	store := marketplace.NewMemStore(nil)
	svc, err := marketplace.NewService(store,
		marketplace.WithGeofence(geo),
		marketplace.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		t.Fatal(err)
	}
	log := logging.Nop()
	router := httpapi.NewRouter(
		httpapi.NewJobsHandler(svc, log),
		httpapi.NewToolsHandler(est, pf, geo, log),
		reg,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, store: store}
}

func (a *apiFixture) do(t *testing.T, method, path, user string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	if user != "" {
		req.Header.Set("x-user-id", user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func jobBody() map[string]any {
	return map[string]any{
		"service_type":    "cleaning",
		"scheduling_type": "asap",
		"location":        "350 5th Ave, New York, NY",
		"price":           120,
		"autofill_type":   "Custom",
		"description":     "Two bedroom deep clean",
		"coordinate":      map[string]float64{"lat": 40.7484, "lng": -73.9857},
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t, fakeEstimator{}, fakePlaces{})
	resp, body := a.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}
}

func TestJobs_RequireUser(t *testing.T) {
	a := newAPI(t, fakeEstimator{}, fakePlaces{})
	resp, _ := a.do(t, http.MethodGet, "/jobs", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestJobs_EndToEnd(t *testing.T) {
	a := newAPI(t, fakeEstimator{}, fakePlaces{})

	resp, body := a.do(t, http.MethodPost, "/jobs", "customer-1", jobBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	var job marketplace.Job
	if err := json.Unmarshal(body, &job); err != nil {
		t.Fatal(err)
	}

	arrive := time.Now().Add(30 * time.Minute)
	for _, b := range []struct {
		pro string
		amt float64
	}{{"pro-40", 40}, {"pro-35", 35}} {
		resp, body = a.do(t, http.MethodPost, "/jobs/"+job.ServiceID+"/bids", b.pro,
			map[string]any{"bid": b.amt, "proposed_date_time": arrive})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("bid %s = %d %s", b.pro, resp.StatusCode, body)
		}
	}

	resp, body = a.do(t, http.MethodGet, "/jobs", "customer-1", nil)
	var views []marketplace.JobView
	if err := json.Unmarshal(body, &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].BidCount != 2 || !views[0].ReadyToSelect {
		t.Errorf("snapshot = %s", body)
	}

	resp, body = a.do(t, http.MethodPost, "/jobs/"+job.ServiceID+"/confirm", "customer-1",
		map[string]any{"service_provider_id": "pro-35", "bid": 35})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm = %d %s", resp.StatusCode, body)
	}

	resp, body = a.do(t, http.MethodGet, "/jobs/"+job.ServiceID, "customer-1", nil)
	var view marketplace.JobView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.Status != marketplace.StatusConfirmed || !view.IsAssignedTo("pro-35") || *view.Price != 35 || view.BidCount != 0 {
		t.Errorf("confirmed job = %s", body)
	}

	resp, _ = a.do(t, http.MethodPost, "/jobs/"+job.ServiceID+"/bids", "pro-40",
		map[string]any{"bid": 30, "proposed_date_time": arrive})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("bid on confirmed job = %d, want 409", resp.StatusCode)
	}
}

func TestJobs_ErrorMapping(t *testing.T) {
	a := newAPI(t, fakeEstimator{}, fakePlaces{})

	bad := jobBody()
	bad["location"] = "Fifth Avenue"
	if resp, _ := a.do(t, http.MethodPost, "/jobs", "customer-1", bad); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing street number = %d, want 400", resp.StatusCode)
	}

	if resp, _ := a.do(t, http.MethodGet, "/jobs/nope", "customer-1", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job = %d, want 404", resp.StatusCode)
	}

	if resp, _ := a.do(t, http.MethodPost, "/jobs/nope/advance", "pro-1", map[string]string{}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("advance without newStatus = %d, want 400", resp.StatusCode)
	}
}

func TestJobs_CancelBidAndRelease(t *testing.T) {
	a := newAPI(t, fakeEstimator{}, fakePlaces{})
	_, body := a.do(t, http.MethodPost, "/jobs", "customer-1", jobBody())
	var job marketplace.Job
	_ = json.Unmarshal(body, &job)
	base := "/jobs/" + job.ServiceID

	a.do(t, http.MethodPost, base+"/bids", "pro-1", map[string]any{"bid": 50, "proposed_date_time": time.Now().Add(time.Hour)})
	if resp, _ := a.do(t, http.MethodDelete, base+"/bids", "pro-1", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("cancel bid = %d", resp.StatusCode)
	}

	if resp, _ := a.do(t, http.MethodPost, base+"/confirm", "customer-1", map[string]any{"service_provider_id": "pro-1", "bid": 50}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("confirm of a withdrawn bid = %d, want 400", resp.StatusCode)
	}
	if resp, _ := a.do(t, http.MethodPost, base+"/release", "pro-1", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("release of an unassigned job = %d, want 404", resp.StatusCode)
	}

	a.do(t, http.MethodPost, base+"/bids", "pro-1", map[string]any{"bid": 50, "proposed_date_time": time.Now().Add(time.Hour)})
	if resp, body := a.do(t, http.MethodPost, base+"/confirm", "customer-1", map[string]any{"service_provider_id": "pro-1", "bid": 50}); resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm = %d %s", resp.StatusCode, body)
	}
	resp, body := a.do(t, http.MethodPost, base+"/advance", "pro-1", map[string]string{"newStatus": "HELPR_OTW"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance = %d %s", resp.StatusCode, body)
	}
	if resp, _ := a.do(t, http.MethodPost, base+"/release", "pro-1", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("release after otw = %d, want 409", resp.StatusCode)
	}
}

func TestEstimates(t *testing.T) {
	a := newAPI(t, fakeEstimator{est: &pricing.Estimate{Price: 102}}, fakePlaces{})
	resp, body := a.do(t, http.MethodPost, "/estimates", "", pricing.Request{ServiceType: "cleaning", Description: "studio"})
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"price":102`) {
		t.Errorf("estimate = %d %s", resp.StatusCode, body)
	}

	a = newAPI(t, fakeEstimator{err: pricing.ErrEstimateUnavailable}, fakePlaces{})
	resp, body = a.do(t, http.MethodPost, "/estimates", "", pricing.Request{Description: "studio"})
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(string(body), "unable to estimate") {
		t.Errorf("unavailable estimate = %d %s", resp.StatusCode, body)
	}
}

func TestPlaces(t *testing.T) {
	a := newAPI(t, fakeEstimator{}, fakePlaces{})
	resp, body := a.do(t, http.MethodGet, "/places/autocomplete?q=350+5th", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "p1") {
		t.Errorf("autocomplete = %d %s", resp.StatusCode, body)
	}
	if resp, _ := a.do(t, http.MethodGet, "/places/zzz", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown place = %d, want 404", resp.StatusCode)
	}

	down := newAPI(t, fakeEstimator{}, fakePlaces{fail: true})
	resp, body = down.do(t, http.MethodGet, "/places/autocomplete?q=350", "", nil)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("degraded autocomplete = %d %s, want 200 []", resp.StatusCode, body)
	}
}

func TestServiceAreaCheck(t *testing.T) {
	a := newAPI(t, fakeEstimator{}, fakePlaces{})
	cases := []struct {
		body   map[string]any
		code   int
		within bool
	}{
		{map[string]any{"lat": 40.7484, "lng": -73.9857}, http.StatusOK, true},
		{map[string]any{"lat": 39.9526, "lng": -75.1652}, http.StatusOK, false},
		{map[string]any{"place_id": "p1"}, http.StatusOK, true},
		{map[string]any{"place_id": "bogus"}, http.StatusBadRequest, false},
		{map[string]any{}, http.StatusBadRequest, false},
	}
	for _, c := range cases {
		resp, body := a.do(t, http.MethodPost, "/service-area/check", "", c.body)
		if resp.StatusCode != c.code {
			t.Errorf("%v: status = %d, want %d", c.body, resp.StatusCode, c.code)
			continue
		}
		if c.code != http.StatusOK {
			continue
		}
		var out struct {
			Within bool `json:"within"`
		}
		_ = json.Unmarshal(body, &out)
		if out.Within != c.within {
			t.Errorf("%v: within = %v, want %v", c.body, out.Within, c.within)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := newAPI(t, fakeEstimator{}, fakePlaces{})
	_, body := a.do(t, http.MethodPost, "/jobs", "customer-1", jobBody())
	var job marketplace.Job
	_ = json.Unmarshal(body, &job)
	a.do(t, http.MethodPost, "/jobs/"+job.ServiceID+"/bids", "pro-1", map[string]any{"bid": 50, "proposed_date_time": time.Now().Add(time.Hour)})

	resp, body := a.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "helpr_fill_requests_placed_total 1") {
		t.Errorf("metrics = %d, body missing bids counter:\n%s", resp.StatusCode, body)
	}
}
