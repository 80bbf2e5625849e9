// services/content.go - Quiz content provider
//
// Supplies the game core with ordered, immutable question snapshots and
// enforces the authoring-time contracts the scoring strategies depend on.
package services

import (
	"fmt"

	"quizhub/apperr"
	"quizhub/models"
	"quizhub/scoring"

	"gorm.io/gorm"
)

type ContentService struct {
	db *gorm.DB
}

func NewContentService(db *gorm.DB) *ContentService {
	return &ContentService{db: db}
}

// QuizSnapshot is the read-only view of a quiz handed to the session engine.
// The question slice is ordered by ordinal position and never mutated.
type QuizSnapshot struct {
	ID         uint
	Title      string
	Visibility string
	Private    bool
	AuthorID   uint
	TimeLimit  int // seconds per question, 0 = none
	Questions  []models.Question
}

// QuestionByID finds a question in the snapshot, nil if absent.
func (snap *QuizSnapshot) QuestionByID(questionID uint) *models.Question {
	for i := range snap.Questions {
		if snap.Questions[i].ID == questionID {
			return &snap.Questions[i]
		}
	}
	return nil
}

// MaxScore is the sum of base points across all questions.
func (snap *QuizSnapshot) MaxScore() int {
	total := 0
	for _, q := range snap.Questions {
		total += q.Points
	}
	return total
}

// GetQuizSnapshot loads a quiz with its ordered questions and options.
func (s *ContentService) GetQuizSnapshot(quizID uint) (*QuizSnapshot, error) {
	var quiz models.Quiz
	err := s.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC, id ASC")
		}).
		Preload("Questions.Options").
		First(&quiz, quizID).Error
	if err != nil {
		return nil, apperr.NotFound("quiz not found")
	}

	return &QuizSnapshot{
		ID:         quiz.ID,
		Title:      quiz.Title,
		Visibility: quiz.Visibility,
		Private:    quiz.IsPrivate(),
		AuthorID:   quiz.AuthorID,
		TimeLimit:  quiz.TimeLimit,
		Questions:  quiz.Questions,
	}, nil
}

// AuthorizeAccess applies the quiz visibility rules: private quizzes are
// usable only by their author or an admin.
func (s *ContentService) AuthorizeAccess(snap *QuizSnapshot, identity models.Identity) error {
	if snap.Private && snap.AuthorID != identity.UserID && !identity.IsAdmin() {
		return apperr.Forbidden("you cannot access this quiz")
	}
	return nil
}

type CreateQuizInput struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Visibility  string                `json:"visibility"`
	TimeLimit   int                   `json:"time_limit"`
	Questions   []CreateQuestionInput `json:"questions"`
}

type CreateQuestionInput struct {
	Type          string              `json:"type"`
	Text          string              `json:"text"`
	CorrectAnswer string              `json:"correct_answer"`
	Explanation   string              `json:"explanation"`
	Points        int                 `json:"points"`
	TimeLimit     int                 `json:"time_limit"`
	Options       []CreateOptionInput `json:"options"`
}

type CreateOptionInput struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// CreateQuiz validates and persists a quiz with its questions in one
// transaction. Shape checks run through the scoring strategies so that the
// session engine only ever sees scoreable questions.
func (s *ContentService) CreateQuiz(identity models.Identity, input CreateQuizInput) (*models.Quiz, error) {
	if input.Title == "" {
		return nil, apperr.Validation("quiz title is required")
	}
	if len(input.Questions) == 0 {
		return nil, apperr.Validation("quiz needs at least one question")
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
		return nil, apperr.Validation("unknown quiz visibility")
	}

	for i, q := range input.Questions {
		if err := s.validateQuestion(q); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("question %d: %s", i+1, err.Error()))
		}
	}

	quiz := models.Quiz{
		Title:       input.Title,
		Description: input.Description,
		Visibility:  visibility,
		AuthorID:    identity.UserID,
		TimeLimit:   input.TimeLimit,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}

		for i, q := range input.Questions {
			points := q.Points
			if points <= 0 {
				points = 10
			}

			question := models.Question{
				QuizID:        quiz.ID,
				Type:          q.Type,
				Text:          q.Text,
				CorrectAnswer: q.CorrectAnswer,
				Explanation:   q.Explanation,
				Points:        points,
				TimeLimit:     q.TimeLimit,
				OrderNum:      i + 1,
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}

			for _, o := range q.Options {
				option := models.Option{
					QuestionID: question.ID,
					Text:       o.Text,
					IsCorrect:  o.IsCorrect,
				}
				if err := tx.Create(&option).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	return &quiz, nil
}

// validateQuestion applies the per-type authoring contract.
func (s *ContentService) validateQuestion(q CreateQuestionInput) error {
	if q.Text == "" {
		return apperr.Validation("question text is required")
	}

	validator, err := scoring.ForType(q.Type)
	if err != nil {
		return err
	}

	options := make([]scoring.Option, len(q.Options))
	for i, o := range q.Options {
		options[i] = scoring.Option{Text: o.Text, IsCorrect: o.IsCorrect}
	}
	if err := validator.ValidateOptions(options); err != nil {
		return err
	}

	if q.Type == models.QuestionTextInput {
		if q.CorrectAnswer == "" {
			return apperr.Validation("text input questions need a correct answer")
		}
		if len(q.Options) != 0 {
			return apperr.Validation("text input questions carry no options")
		}
	}

	return nil
}

// ListQuizzes returns the quizzes visible to the caller.
func (s *ContentService) ListQuizzes(identity models.Identity) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	query := s.db.Order("created_at DESC")
	if !identity.IsAdmin() {
		query = query.Where("visibility = ? OR author_id = ?", models.VisibilityPublic, identity.UserID)
	}
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}
