// scoring/strategies.go - Question type strategies
package scoring

import (
	"sort"
	"strings"

	"quizhub/apperr"
)

// singleChoice: one option id submitted, correct iff it matches the single
// option marked correct.
type singleChoice struct{}

func (singleChoice) ValidateOptions(options []Option) error {
	if len(options) < 2 {
		return apperr.Validation("single choice questions need at least 2 options")
	}
	if countCorrect(options) != 1 {
		return apperr.Validation("single choice questions need exactly 1 correct option")
	}
	return nil
}

func (singleChoice) ValidateAnswer(submitted []string, options []Option, _ string) bool {
	if len(submitted) == 0 {
		return false
	}
	for _, o := range options {
		if o.IsCorrect {
			return submitted[0] == o.ID
		}
	}
	return false
}

func (singleChoice) CalculateScore(isCorrect bool, basePoints, elapsedMs, limitMs int) int {
	return timeScore(isCorrect, basePoints, elapsedMs, limitMs)
}

// multipleChoice: a set of option ids submitted, correct iff it equals the
// marked-correct set exactly. Order-independent, no partial credit.
type multipleChoice struct{}

func (multipleChoice) ValidateOptions(options []Option) error {
	if len(options) < 2 {
		return apperr.Validation("multiple choice questions need at least 2 options")
	}
	if countCorrect(options) < 1 {
		return apperr.Validation("multiple choice questions need at least 1 correct option")
	}
	return nil
}

func (multipleChoice) ValidateAnswer(submitted []string, options []Option, _ string) bool {
	var correct []string
	for _, o := range options {
		if o.IsCorrect {
			correct = append(correct, o.ID)
		}
	}

	if len(submitted) != len(correct) {
		return false
	}

	sortedSubmitted := append([]string(nil), submitted...)
	sort.Strings(sortedSubmitted)
	sort.Strings(correct)

	for i := range correct {
		if sortedSubmitted[i] != correct[i] {
			return false
		}
	}
	return true
}

func (multipleChoice) CalculateScore(isCorrect bool, basePoints, elapsedMs, limitMs int) int {
	return timeScore(isCorrect, basePoints, elapsedMs, limitMs)
}

// trueFalse: exactly two options labelled "true" and "false", one correct.
type trueFalse struct{}

func (trueFalse) ValidateOptions(options []Option) error {
	if len(options) != 2 {
		return apperr.Validation("true/false questions need exactly 2 options")
	}

	hasTrue, hasFalse := false, false
	for _, o := range options {
		switch strings.ToLower(o.Text) {
		case "true":
			hasTrue = true
		case "false":
			hasFalse = true
		}
	}
	if !hasTrue || !hasFalse {
		return apperr.Validation(`true/false options must be labelled "true" and "false"`)
	}
	if countCorrect(options) != 1 {
		return apperr.Validation("true/false questions need exactly 1 correct option")
	}
	return nil
}

func (trueFalse) ValidateAnswer(submitted []string, options []Option, _ string) bool {
	if len(submitted) == 0 {
		return false
	}
	for _, o := range options {
		if o.ID == submitted[0] {
			return o.IsCorrect
		}
	}
	return false
}

func (trueFalse) CalculateScore(isCorrect bool, basePoints, elapsedMs, limitMs int) int {
	return timeScore(isCorrect, basePoints, elapsedMs, limitMs)
}

// textInput: free text compared against the canonical answer, trimmed and
// case-folded. No options; the canonical answer is required at authoring time.
type textInput struct{}

func (textInput) ValidateOptions(_ []Option) error {
	return nil
}

func (textInput) ValidateAnswer(submitted []string, _ []Option, correctAnswer string) bool {
	if correctAnswer == "" || len(submitted) == 0 {
		return false
	}

	answer := strings.TrimSpace(submitted[0])
	if answer == "" {
		return false
	}
	return strings.EqualFold(answer, strings.TrimSpace(correctAnswer))
}

func (textInput) CalculateScore(isCorrect bool, basePoints, elapsedMs, limitMs int) int {
	return timeScore(isCorrect, basePoints, elapsedMs, limitMs)
}

func countCorrect(options []Option) int {
	count := 0
	for _, o := range options {
		if o.IsCorrect {
			count++
		}
	}
	return count
}
