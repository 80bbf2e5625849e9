// models/quiz.go - Quiz content models (read-only snapshot for the game core)
package models

import (
	"time"
)

// Question types
const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionTextInput      = "text_input"
)

// Quiz visibility
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type Quiz struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null;size:200" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Visibility  string `gorm:"default:'public';size:20;index" json:"visibility"`
	AuthorID    uint   `gorm:"index" json:"author_id"`
	TimeLimit   int    `gorm:"default:0" json:"time_limit"` // seconds per question, 0 = none

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

type Question struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	QuizID        uint   `gorm:"not null;index" json:"quiz_id"`
	Type          string `gorm:"not null;size:30" json:"type"`
	Text          string `gorm:"type:text;not null" json:"text"`
	CorrectAnswer string `gorm:"size:500" json:"correct_answer,omitempty"` // canonical answer (text_input only)
	Explanation   string `gorm:"type:text" json:"explanation,omitempty"`
	Points        int    `gorm:"default:10" json:"points"`
	TimeLimit     int    `gorm:"default:0" json:"time_limit"` // seconds, 0 = inherit quiz default
	OrderNum      int    `gorm:"index" json:"order_num"`

	Options []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

type Option struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"not null;size:500" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"is_correct"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (Question) TableName() string {
	return "questions"
}

func (Option) TableName() string {
	return "question_options"
}

// EffectiveTimeLimit returns the question's own limit, falling back to the
// quiz-level default. Zero means unlimited.
func (q *Question) EffectiveTimeLimit(quizDefault int) int {
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return quizDefault
}

// HasOptions reports whether this question type carries an option set.
func (q *Question) HasOptions() bool {
	return q.Type != QuestionTextInput
}

// IsPrivate reports whether the quiz is visible only to its author (and admins).
func (qz *Quiz) IsPrivate() bool {
	return qz.Visibility == VisibilityPrivate
}
