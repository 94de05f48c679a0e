package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAppendBreadcrumbCapsFIFO(t *testing.T) {
	t.Parallel()

	j := &Job{}
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 250; i++ {
		j.AppendBreadcrumb(Breadcrumb{Latitude: float64(i), Timestamp: base.Add(time.Duration(i) * time.Second)})
		if len(j.Breadcrumbs) > MaxBreadcrumbs {
			t.Fatalf("len = %d after %d appends, want <= %d", len(j.Breadcrumbs), i+1, MaxBreadcrumbs)
		}
	}

	if len(j.Breadcrumbs) != MaxBreadcrumbs {
		t.Fatalf("len = %d, want %d", len(j.Breadcrumbs), MaxBreadcrumbs)
	}
	if got := j.Breadcrumbs[0].Latitude; got != 150 {
		t.Errorf("oldest kept = %v, want 150", got)
	}
	if got := j.Breadcrumbs[MaxBreadcrumbs-1].Latitude; got != 249 {
		t.Errorf("newest = %v, want 249", got)
	}
	if j.ProviderLocation == nil || j.ProviderLocation.Latitude != 249 {
		t.Errorf("ProviderLocation = %+v, want latest sample", j.ProviderLocation)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	pid := uuid.New()
	price := 80.0
	now := time.Now().UTC()
	orig := &Job{
		ID:            uuid.New(),
		ProviderID:    &pid,
		PriceEstimate: &price,
		AcceptedAt:    &now,
		Service:       ServiceDescriptor{Category: "plumbing", MediaURLs: []string{"https://cdn.example/a.jpg"}},
		Breadcrumbs:   []Breadcrumb{{Latitude: 1}},
		Provider:      &ProviderSummary{Name: "Ana"},
	}

	cp := orig.Clone()
	*cp.ProviderID = uuid.New()
	*cp.PriceEstimate = 1
	*cp.AcceptedAt = now.Add(time.Hour)
	cp.Service.MediaURLs[0] = "changed"
	cp.Breadcrumbs[0].Latitude = 99
	cp.Provider.Name = "Other"

	if *orig.ProviderID != pid {
		t.Error("ProviderID shared with clone")
	}
	if *orig.PriceEstimate != 80 {
		t.Error("PriceEstimate shared with clone")
	}
	if !orig.AcceptedAt.Equal(now) {
		t.Error("AcceptedAt shared with clone")
	}
	if orig.Service.MediaURLs[0] != "https://cdn.example/a.jpg" {
		t.Error("MediaURLs shared with clone")
	}
	if orig.Breadcrumbs[0].Latitude != 1 {
		t.Error("Breadcrumbs shared with clone")
	}
	if orig.Provider.Name != "Ana" {
		t.Error("Provider summary shared with clone")
	}
}

func TestStatusSets(t *testing.T) {
	t.Parallel()

	for _, s := range AllJobStatuses {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if JobStatus("paused").Valid() {
		t.Error("unknown status reported valid")
	}
	for _, s := range ActiveJobStatuses {
		if s.IsTerminal() {
			t.Errorf("%s listed as active but terminal", s)
		}
	}
	if !JobStatusCompleted.IsTerminal() || !JobStatusCancelled.IsTerminal() {
		t.Error("completed and cancelled must be terminal")
	}
}
