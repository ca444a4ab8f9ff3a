package measure

import "testing"

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

func TestEvaluate_CBP(t *testing.T) {
	cases := []struct {
		name     string
		systolic int
		diastolic int
		want     bool
	}{
		{"controlled", 130, 85, true},
		{"systolic high", 150, 85, false},
		{"diastolic high", 130, 95, false},
		{"both high", 150, 95, false},
		{"systolic at threshold", 140, 85, false},
		{"diastolic at threshold", 130, 90, false},
		{"just under both thresholds", 139, 89, true},
		{"zero systolic", 0, 85, false},
		{"zero diastolic", 130, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(CodeCBP, Reading{Systolic: tc.systolic, Diastolic: tc.diastolic})
			if got != tc.want {
				t.Errorf("Evaluate(CBP, %d/%d) = %v, want %v", tc.systolic, tc.diastolic, got, tc.want)
			}
		})
	}
}

func TestEvaluate_DMA1C(t *testing.T) {
	if !Evaluate(CodeDMA1C, Reading{Value: f(7.2)}) {
		t.Error("a1c 7.2 should be compliant")
	}
	if Evaluate(CodeDMA1C, Reading{Value: f(8.0)}) {
		t.Error("a1c 8.0 should not be compliant")
	}
	if Evaluate(CodeDMA1C, Reading{}) {
		t.Error("missing value should not be compliant")
	}
}

func TestEvaluate_Statin(t *testing.T) {
	if !Evaluate(CodeStatin, Reading{Adherent: b(true)}) {
		t.Error("adherent should be compliant")
	}
	if Evaluate(CodeStatin, Reading{Adherent: b(false)}) {
		t.Error("non-adherent should not be compliant")
	}
	if Evaluate(CodeStatin, Reading{}) {
		t.Error("missing adherence should not be compliant")
	}
}

func TestEvaluate_UnknownCodeFailsClosed(t *testing.T) {
	if Evaluate("BMI", Reading{Systolic: 120, Diastolic: 80, Value: f(5.0), Adherent: b(true)}) {
		t.Error("unknown measure must never evaluate to compliant")
	}
}

func TestResolve(t *testing.T) {
	cases := map[string]string{
		"CBP":               CodeCBP,
		"cbp":               CodeCBP,
		"HTN Control":       CodeCBP,
		" htn control ":     CodeCBP,
		"Statin Adherence":  CodeStatin,
		"STATIN":            CodeStatin,
		"30d Follow-up":     CodeDMA1C,
		"DM_A1C":            CodeDMA1C,
		"not a measure":     "",
		"":                  "",
	}
	for in, want := range cases {
		if got := Resolve(in); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAll_StableOrderAndTargets(t *testing.T) {
	defs := All()
	if len(defs) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(defs))
	}
	if defs[0].Code != CodeCBP || defs[0].Target != 0.90 {
		t.Errorf("first definition = %+v", defs[0])
	}
	if defs[1].Code != CodeDMA1C || defs[1].Target != 0.75 {
		t.Errorf("second definition = %+v", defs[1])
	}
	if defs[2].Code != CodeStatin || defs[2].Target != 0.80 {
		t.Errorf("third definition = %+v", defs[2])
	}
	for _, d := range defs {
		if d.Display == "" || d.Evaluate == nil {
			t.Errorf("definition %s incomplete", d.Code)
		}
	}
}
