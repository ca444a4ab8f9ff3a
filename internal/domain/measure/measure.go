// Package measure defines the quality-measure registry and the compliance
// evaluator used to decide whether a patient-submitted reading satisfies
// a measure.
package measure

import "strings"

// Measure codes supported by the registry.
const (
	CodeCBP    = "CBP"
	CodeDMA1C  = "DM_A1C"
	CodeStatin = "STATIN"
)

// Reading is the clinical input handed to the evaluator. Fields that do
// not apply to a measure are left at their zero value or nil.
type Reading struct {
	Systolic  int      `json:"systolic,omitempty"`
	Diastolic int      `json:"diastolic,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Adherent  *bool    `json:"adherent,omitempty"`
}

// Definition describes one registered quality measure.
type Definition struct {
	Code     string  `json:"code"`
	Display  string  `json:"display"`
	Target   float64 `json:"target"`
	Evaluate func(Reading) bool
}

var registry = map[string]Definition{
	CodeCBP: {
		Code:    CodeCBP,
		Display: "HTN Control",
		Target:  0.90,
		Evaluate: func(r Reading) bool {
			return r.Systolic > 0 && r.Diastolic > 0 && r.Systolic < 140 && r.Diastolic < 90
		},
	},
	CodeDMA1C: {
		Code:    CodeDMA1C,
		Display: "30d Follow-up",
		Target:  0.75,
		Evaluate: func(r Reading) bool {
			return r.Value != nil && *r.Value < 8.0
		},
	},
	CodeStatin: {
		Code:    CodeStatin,
		Display: "Statin Adherence",
		Target:  0.80,
		Evaluate: func(r Reading) bool {
			return r.Adherent != nil && *r.Adherent
		},
	},
}

// Display names seen in imported gap files, mapped back to codes.
var displayAliases = map[string]string{
	"htn control":                        CodeCBP,
	"controlling high blood pressure":    CodeCBP,
	"statin adherence":                   CodeStatin,
	"statin therapy":                     CodeStatin,
	"30d follow-up":                      CodeDMA1C,
	"diabetes a1c control":               CodeDMA1C,
	"hemoglobin a1c control for diabetes": CodeDMA1C,
}

// Lookup returns the definition for a measure code.
func Lookup(code string) (Definition, bool) {
	def, ok := registry[code]
	return def, ok
}

// All returns every registered definition in a stable order.
func All() []Definition {
	return []Definition{registry[CodeCBP], registry[CodeDMA1C], registry[CodeStatin]}
}

// Known reports whether the code is registered.
func Known(code string) bool {
	_, ok := registry[code]
	return ok
}

// Resolve normalizes a measure identifier to a registered code. It
// accepts both codes and the display names that appear in gap imports,
// case-insensitively. Returns "" when nothing matches.
func Resolve(identifier string) string {
	trimmed := strings.TrimSpace(identifier)
	if _, ok := registry[strings.ToUpper(trimmed)]; ok {
		return strings.ToUpper(trimmed)
	}
	if code, ok := displayAliases[strings.ToLower(trimmed)]; ok {
		return code
	}
	return ""
}

// Evaluate applies the measure's compliance rule to the reading. Unknown
// codes evaluate to false: an unrecognized measure never marks a patient
// compliant.
func Evaluate(code string, r Reading) bool {
	def, ok := registry[code]
	if !ok {
		return false
	}
	return def.Evaluate(r)
}
