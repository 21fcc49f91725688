package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/apitest"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) EventsDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewFromSource(fakeSource{snapshot: goSession.MetricsSnapshot{
		Counters:   map[goSession.MetricID]uint64{},
		Histograms: map[goSession.MetricID][]uint64{},
	}})
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got:\n%s", got)
	}
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricRenewalSuccess: 7,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricRenewalLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"gosession_renewal_success_total 7",
		"gosession_renewal_failure_total 0",
		`gosession_renewal_latency_seconds_bucket{le="0.01"} 1`,
		`gosession_renewal_latency_seconds_bucket{le="+Inf"} 36`,
		"gosession_renewal_latency_seconds_count 36",
		"gosession_events_dropped_total 2",
		"# TYPE gosession_renewal_latency_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerServesLiveClient(t *testing.T) {
	srv, err := apitest.Start(apitest.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()
	if _, err := srv.SeedUser("a@example.com", "password123", "A"); err != nil {
		t.Fatal(err)
	}

	client, err := goSession.New().WithBaseURL(srv.URL).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	if _, err := client.SignIn(context.Background(), "a@example.com", "password123"); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	New(client).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), "gosession_signin_success_total 1") {
		t.Fatalf("expected sign-in counter, got:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewFromSource(fakeSource{snapshot: goSession.MetricsSnapshot{
		Counters: map[goSession.MetricID]uint64{
			goSession.MetricCredentialAttached: 1000,
			goSession.MetricAuthFailure:        40,
			goSession.MetricRenewalStarted:     40,
			goSession.MetricRenewalJoined:      300,
		},
		Histograms: map[goSession.MetricID][]uint64{
			goSession.MetricRenewalLatency: {10, 20, 30, 40, 50, 60, 70, 80},
		},
	}})

	b.ReportAllocs()
	for b.Loop() {
		_ = exp.Render()
	}
}
