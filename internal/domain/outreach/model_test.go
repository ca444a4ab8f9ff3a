package outreach

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusQueued, StatusSent},
		{StatusQueued, StatusFailed},
		{StatusSent, StatusClicked},
		{StatusSent, StatusFailed},
		{StatusClicked, StatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to string }{
		{StatusSent, StatusQueued},
		{StatusClicked, StatusSent},
		{StatusCompleted, StatusClicked},
		{StatusFailed, StatusSent},
		{StatusCompleted, StatusFailed},
		{StatusQueued, StatusCompleted},
		{StatusClicked, StatusFailed},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tc.from, tc.to)
		}
	}
}

func TestOutreachRecord_FirstName(t *testing.T) {
	cases := map[string]string{
		"Ada Lovelace": "Ada",
		"Ada":          "Ada",
		"":             "there",
	}
	for name, want := range cases {
		o := &OutreachRecord{PatientName: name}
		if got := o.FirstName(); got != want {
			t.Errorf("FirstName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusQueued, StatusSent, StatusClicked, StatusCompleted, StatusFailed} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	if ValidStatus("delivered") {
		t.Error("ValidStatus(delivered) = true")
	}
}
