package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func matrixServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/distancematrix/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestDriveMiles_ConvertsMetersToMiles(t *testing.T) {
	// 160934 meters is 100.0 miles.
	srv := matrixServer(t, `{
		"status": "OK",
		"rows": [{"elements": [{"status": "OK", "distance": {"value": 160934}}]}]
	}`, http.StatusOK)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	miles, ok, err := c.DriveMiles(context.Background(), "Dallas, TX", "Atlanta, GA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if miles != 100 {
		t.Errorf("miles = %d, want 100", miles)
	}
}

func TestDriveMiles_ZeroResultsIsMissingDataNotError(t *testing.T) {
	srv := matrixServer(t, `{
		"status": "OK",
		"rows": [{"elements": [{"status": "ZERO_RESULTS"}]}]
	}`, http.StatusOK)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	miles, ok, err := c.DriveMiles(context.Background(), "Dallas, TX", "Honolulu, HI")
	if err != nil {
		t.Fatalf("no-route must not be an error: %v", err)
	}
	if ok || miles != 0 {
		t.Errorf("got miles=%d ok=%v, want 0/false", miles, ok)
	}
}

func TestDriveMiles_TopLevelDeniedIsMissingData(t *testing.T) {
	srv := matrixServer(t, `{"status": "REQUEST_DENIED", "rows": []}`, http.StatusOK)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, ok, err := c.DriveMiles(context.Background(), "a", "b")
	if err != nil || ok {
		t.Errorf("got ok=%v err=%v, want false/nil", ok, err)
	}
}

func TestDriveMiles_Non2xxIsAnError(t *testing.T) {
	srv := matrixServer(t, `oops`, http.StatusInternalServerError)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, _, err := c.DriveMiles(context.Background(), "a", "b")
	if err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestDriveMiles_BlankEndpointSkipsLookup(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, ok, err := c.DriveMiles(context.Background(), "", "Atlanta, GA")
	if err != nil || ok {
		t.Errorf("got ok=%v err=%v, want false/nil", ok, err)
	}
	if called {
		t.Error("no request should be sent for a blank endpoint")
	}
}
