package reporting

import (
	"testing"
)

func TestPredefinedReports(t *testing.T) {
	if len(PredefinedReports) != 5 {
		t.Fatalf("expected 5 predefined reports, got %d", len(PredefinedReports))
	}

	expectedIDs := []string{
		"compliance-rate-by-measure",
		"compliance-rate-by-clinic",
		"monthly-compliance-trend",
		"outreach-funnel",
		"readings-volume",
	}

	for i, expectedID := range expectedIDs {
		if PredefinedReports[i].ID != expectedID {
			t.Errorf("expected report[%d].ID = %s, got %s", i, expectedID, PredefinedReports[i].ID)
		}
	}
}

func TestPredefinedReports_HaveSQL(t *testing.T) {
	for _, r := range PredefinedReports {
		if r.SQL == "" {
			t.Errorf("report %s has empty SQL", r.ID)
		}
		if r.Name == "" {
			t.Errorf("report %s has empty name", r.ID)
		}
		if r.Description == "" {
			t.Errorf("report %s has empty description", r.ID)
		}
	}
}

func TestFindReport_Exists(t *testing.T) {
	r := FindReport("outreach-funnel")
	if r == nil {
		t.Fatal("expected to find outreach-funnel report")
	}
	if r.Name != "Outreach Funnel" {
		t.Errorf("expected 'Outreach Funnel', got %s", r.Name)
	}
}

func TestFindReport_NotFound(t *testing.T) {
	if r := FindReport("nonexistent"); r != nil {
		t.Error("expected nil for nonexistent report")
	}
}

func TestFindReport_AllPredefined(t *testing.T) {
	for _, def := range PredefinedReports {
		found := FindReport(def.ID)
		if found == nil {
			t.Errorf("expected to find report %s", def.ID)
			continue
		}
		if found.ID != def.ID {
			t.Errorf("ID mismatch: expected %s, got %s", def.ID, found.ID)
		}
	}
}

func TestNewHandler(t *testing.T) {
	if h := NewHandler(nil); h == nil {
		t.Fatal("expected non-nil handler")
	}
}
