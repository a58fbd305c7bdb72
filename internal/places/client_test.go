package places_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/places"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/autocomplete/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("missing api key in %s", r.URL)
		}
		switch r.URL.Query().Get("input") {
		case "nowhere":
			fmt.Fprint(w, `{"status":"ZERO_RESULTS","predictions":[]}`)
		case "denied":
			fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)
		default:
			fmt.Fprint(w, `{"status":"OK","predictions":[
				{"place_id":"p1","description":"350 5th Ave, New York, NY"},
				{"place_id":"p2","description":"350 5th St, Brooklyn, NY"},
				{"place_id":"p3","description":"3"},{"place_id":"p4","description":"4"},
				{"place_id":"p5","description":"5"},{"place_id":"p6","description":"6"}]}`)
		}
	})
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") != "p1" {
			fmt.Fprint(w, `{"status":"NOT_FOUND"}`)
			return
		}
		fmt.Fprint(w, `{"status":"OK","result":{"place_id":"p1",
			"formatted_address":"350 5th Ave, New York, NY 10118, USA",
			"geometry":{"location":{"lat":40.7484,"lng":-73.9857}}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAutocomplete(t *testing.T) {
	srv := newServer(t)
	c := places.NewClient(places.Config{APIKey: "k", BaseURL: srv.URL})

	got, err := c.Autocomplete(context.Background(), "350 5th")
	if err != nil {
		t.Fatalf("Autocomplete: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("suggestions = %d, want 5", len(got))
	}
	if got[0].PlaceID != "p1" || got[1].PlaceID != "p2" {
		t.Errorf("ranking not preserved: %+v", got[:2])
	}

	none, err := c.Autocomplete(context.Background(), "nowhere")
	if err != nil || len(none) != 0 {
		t.Errorf("ZERO_RESULTS = %v, %v; want empty, nil", none, err)
	}

	if _, err := c.Autocomplete(context.Background(), "denied"); err == nil {
		t.Error("expected error for REQUEST_DENIED")
	}
}

func TestAutocomplete_NoKeyOrQuery(t *testing.T) {
	c := places.NewClient(places.Config{BaseURL: "http://127.0.0.1:1"})
	got, err := c.Autocomplete(context.Background(), "350 5th")
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("no key: %v, %v; want empty slice", got, err)
	}

	c = places.NewClient(places.Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	got, err = c.Autocomplete(context.Background(), "   ")
	if err != nil || len(got) != 0 {
		t.Errorf("blank query: %v, %v; want empty", got, err)
	}
}

func TestDetails(t *testing.T) {
	srv := newServer(t)
	c := places.NewClient(places.Config{APIKey: "k", BaseURL: srv.URL})

	p, err := c.Details(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if p.Coordinate.Lat != 40.7484 || p.Coordinate.Lng != -73.9857 {
		t.Errorf("coordinate = %+v", p.Coordinate)
	}
	if p.FormattedAddress == "" {
		t.Error("formatted address is empty")
	}

	if _, err := c.Details(context.Background(), "p9"); !errors.Is(err, places.ErrNoPlace) {
		t.Errorf("unknown place err = %v, want ErrNoPlace", err)
	}
}

func TestDetails_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := places.NewClient(places.Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Details(context.Background(), "p1")
	if err == nil || errors.Is(err, places.ErrNoPlace) {
		t.Errorf("err = %v, want transport error", err)
	}
}
