// scoring/scoring.go - Pure scoring and validation strategies per question type
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"quizhub/apperr"
	"quizhub/models"
)

// Option is the option shape the strategies operate on. IDs are compared as
// string tokens, which is also how they travel on the wire.
type Option struct {
	ID        string
	Text      string
	IsCorrect bool
}

// Validator is the shared capability set every question type implements.
// ValidateOptions is the authoring-time shape check consumed by the content
// service; ValidateAnswer and CalculateScore drive the answer ledger.
type Validator interface {
	ValidateOptions(options []Option) error
	ValidateAnswer(submitted []string, options []Option, correctAnswer string) bool
	CalculateScore(isCorrect bool, basePoints, elapsedMs, limitMs int) int
}

// One strategy per question type, keyed the same way questions are stored.
var validators = map[string]Validator{
	models.QuestionSingleChoice:   singleChoice{},
	models.QuestionMultipleChoice: multipleChoice{},
	models.QuestionTrueFalse:      trueFalse{},
	models.QuestionTextInput:      textInput{},
}

// ForType returns the strategy for a question type.
func ForType(questionType string) (Validator, error) {
	v, ok := validators[questionType]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown question type: %s", questionType))
	}
	return v, nil
}

// ValidateAndScore resolves correctness and awarded points in one step.
// limitMs <= 0 or elapsedMs <= 0 disables the time bonus and a correct answer
// earns full base credit.
func ValidateAndScore(questionType string, submitted []string, options []Option, correctAnswer string, basePoints, elapsedMs, limitMs int) (bool, int, error) {
	v, err := ForType(questionType)
	if err != nil {
		return false, 0, err
	}

	isCorrect := v.ValidateAnswer(submitted, options, correctAnswer)
	points := v.CalculateScore(isCorrect, basePoints, elapsedMs, limitMs)
	return isCorrect, points, nil
}

// timeScore is the scoring formula shared by every strategy: incorrect earns
// nothing; with timing data a correct answer earns between half and full base
// points, linear in remaining time; without timing data, full base points.
func timeScore(isCorrect bool, basePoints, elapsedMs, limitMs int) int {
	if !isCorrect {
		return 0
	}

	if elapsedMs > 0 && limitMs > 0 {
		bonus := math.Max(0, 1-float64(elapsedMs)/float64(limitMs))
		return int(math.Round(float64(basePoints) * (0.5 + 0.5*bonus)))
	}

	return basePoints
}

// OptionsFromModel converts stored options to the strategy shape.
func OptionsFromModel(options []models.Option) []Option {
	result := make([]Option, len(options))
	for i, o := range options {
		result[i] = Option{
			ID:        strconv.FormatUint(uint64(o.ID), 10),
			Text:      o.Text,
			IsCorrect: o.IsCorrect,
		}
	}
	return result
}

// NormalizeSubmission converts a submitted answer value (a single token or an
// ordered set of tokens, numbers accepted for option IDs) into string tokens.
func NormalizeSubmission(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		tokens := make([]string, 0, len(v))
		for _, item := range v {
			tokens = append(tokens, normalizeToken(item))
		}
		return tokens
	default:
		return []string{normalizeToken(v)}
	}
}

func normalizeToken(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; option IDs are integral.
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
