package scoring

import (
	"testing"

	"quizhub/apperr"
	"quizhub/models"
)

func choiceOptions() []Option {
	return []Option{
		{ID: "1", Text: "Paris", IsCorrect: true},
		{ID: "2", Text: "London", IsCorrect: false},
		{ID: "3", Text: "Berlin", IsCorrect: false},
	}
}

func TestSingleChoice_ValidateAnswer(t *testing.T) {
	v, err := ForType(models.QuestionSingleChoice)
	if err != nil {
		t.Fatalf("ForType failed: %v", err)
	}

	opts := choiceOptions()

	if !v.ValidateAnswer([]string{"1"}, opts, "") {
		t.Error("Expected the correct option id to validate")
	}
	if v.ValidateAnswer([]string{"2"}, opts, "") {
		t.Error("Expected a wrong option id to fail")
	}
	if v.ValidateAnswer(nil, opts, "") {
		t.Error("Expected an empty submission to fail")
	}
}

func TestSingleChoice_ValidateOptions(t *testing.T) {
	v, _ := ForType(models.QuestionSingleChoice)

	if err := v.ValidateOptions(choiceOptions()); err != nil {
		t.Errorf("Expected valid option set, got %v", err)
	}

	tooFew := []Option{{ID: "1", IsCorrect: true}}
	if err := v.ValidateOptions(tooFew); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("Expected validation error for a single option, got %v", err)
	}

	twoCorrect := []Option{
		{ID: "1", IsCorrect: true},
		{ID: "2", IsCorrect: true},
	}
	if err := v.ValidateOptions(twoCorrect); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("Expected validation error for two correct options, got %v", err)
	}
}

func TestMultipleChoice_SetEquality(t *testing.T) {
	v, _ := ForType(models.QuestionMultipleChoice)

	opts := []Option{
		{ID: "1", IsCorrect: true},
		{ID: "2", IsCorrect: false},
		{ID: "3", IsCorrect: true},
		{ID: "4", IsCorrect: false},
	}

	tests := []struct {
		name      string
		submitted []string
		want      bool
	}{
		{"exact set", []string{"1", "3"}, true},
		{"permuted set", []string{"3", "1"}, true},
		{"partial set", []string{"1"}, false},
		{"superset", []string{"1", "3", "2"}, false},
		{"wrong set", []string{"2", "4"}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		if got := v.ValidateAnswer(tt.submitted, opts, ""); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestTrueFalse(t *testing.T) {
	v, _ := ForType(models.QuestionTrueFalse)

	opts := []Option{
		{ID: "a", Text: "True", IsCorrect: true},
		{ID: "b", Text: "False", IsCorrect: false},
	}

	if err := v.ValidateOptions(opts); err != nil {
		t.Errorf("Expected valid true/false option set, got %v", err)
	}

	if !v.ValidateAnswer([]string{"a"}, opts, "") {
		t.Error("Expected the correct option to validate")
	}
	if v.ValidateAnswer([]string{"b"}, opts, "") {
		t.Error("Expected the wrong option to fail")
	}
	if v.ValidateAnswer([]string{"missing"}, opts, "") {
		t.Error("Expected an unknown option id to fail")
	}

	badLabels := []Option{
		{ID: "a", Text: "Yes", IsCorrect: true},
		{ID: "b", Text: "No", IsCorrect: false},
	}
	if err := v.ValidateOptions(badLabels); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("Expected validation error for non true/false labels, got %v", err)
	}
}

func TestTextInput(t *testing.T) {
	v, _ := ForType(models.QuestionTextInput)

	tests := []struct {
		name      string
		submitted []string
		canonical string
		want      bool
	}{
		{"exact", []string{"1912"}, "1912", true},
		{"padded", []string{" 1912 "}, "1912", true},
		{"case folded", []string{"TITANIC"}, "titanic", true},
		{"array takes first", []string{"1912", "1913"}, "1912", true},
		{"wrong", []string{"1913"}, "1912", false},
		{"empty submission", []string{""}, "1912", false},
		{"no submission", nil, "1912", false},
		{"no canonical answer", []string{"1912"}, "", false},
	}

	for _, tt := range tests {
		if got := v.ValidateAnswer(tt.submitted, nil, tt.canonical); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestCalculateScore(t *testing.T) {
	v, _ := ForType(models.QuestionSingleChoice)

	tests := []struct {
		name       string
		isCorrect  bool
		basePoints int
		elapsedMs  int
		limitMs    int
		want       int
	}{
		{"incorrect earns nothing", false, 10, 1000, 30000, 0},
		{"no timing data earns full credit", true, 10, 0, 0, 10},
		{"instant answer earns full credit", true, 10, 0, 30000, 10},
		{"halfway earns three quarters", true, 10, 15000, 30000, 8},
		{"at the limit earns half", true, 10, 30000, 30000, 5},
		{"past the limit still earns half", true, 10, 45000, 30000, 5},
		{"no limit earns full credit", true, 10, 15000, 0, 10},
		{"odd base rounds", true, 5, 30000, 30000, 3},
	}

	for _, tt := range tests {
		got := v.CalculateScore(tt.isCorrect, tt.basePoints, tt.elapsedMs, tt.limitMs)
		if got != tt.want {
			t.Errorf("%s: expected %d points, got %d", tt.name, tt.want, got)
		}
	}
}

func TestValidateAndScore(t *testing.T) {
	opts := choiceOptions()

	isCorrect, points, err := ValidateAndScore(models.QuestionSingleChoice, []string{"1"}, opts, "", 10, 15000, 30000)
	if err != nil {
		t.Fatalf("ValidateAndScore failed: %v", err)
	}
	if !isCorrect {
		t.Error("Expected the correct option to validate")
	}
	if points != 8 {
		t.Errorf("Expected 8 points at the halfway mark, got %d", points)
	}

	if _, _, err := ValidateAndScore("riddle", nil, nil, "", 10, 0, 0); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("Expected validation error for an unknown type, got %v", err)
	}
}

func TestNormalizeSubmission(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  []string
	}{
		{"string", "42", []string{"42"}},
		{"json number", float64(42), []string{"42"}},
		{"mixed array", []interface{}{"1", float64(2)}, []string{"1", "2"}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		got := NormalizeSubmission(tt.value)
		if len(got) != len(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
			}
		}
	}
}
