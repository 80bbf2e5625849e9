package services

import (
	"strconv"
	"testing"

	"quizhub/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.GameSession{},
		&models.GamePlayer{},
		&models.Answer{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.Identity {
	t.Helper()

	user := models.User{
		Username:    username,
		Password:    "x",
		DisplayName: username,
		Role:        models.RolePlayer,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return models.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
}

// createTestQuiz seeds a public three-question quiz covering the choice types.
func createTestQuiz(t *testing.T, db *gorm.DB, authorID uint) *models.Quiz {
	t.Helper()

	quiz := models.Quiz{
		Title:      "Capitals",
		Visibility: models.VisibilityPublic,
		AuthorID:   authorID,
		TimeLimit:  30,
	}
	if err := db.Create(&quiz).Error; err != nil {
		t.Fatalf("Failed to create quiz: %v", err)
	}

	questions := []struct {
		qtype   string
		text    string
		answer  string
		points  int
		options []models.Option
	}{
		{
			qtype:  models.QuestionSingleChoice,
			text:   "Capital of France?",
			points: 10,
			options: []models.Option{
				{Text: "Paris", IsCorrect: true},
				{Text: "London", IsCorrect: false},
				{Text: "Berlin", IsCorrect: false},
			},
		},
		{
			qtype:  models.QuestionTrueFalse,
			text:   "The Earth is flat.",
			points: 10,
			options: []models.Option{
				{Text: "True", IsCorrect: false},
				{Text: "False", IsCorrect: true},
			},
		},
		{
			qtype:  models.QuestionTextInput,
			text:   "Year the Titanic sank?",
			answer: "1912",
			points: 20,
		},
	}

	for i, spec := range questions {
		question := models.Question{
			QuizID:        quiz.ID,
			Type:          spec.qtype,
			Text:          spec.text,
			CorrectAnswer: spec.answer,
			Points:        spec.points,
			OrderNum:      i + 1,
		}
		if err := db.Create(&question).Error; err != nil {
			t.Fatalf("Failed to create question: %v", err)
		}
		for _, o := range spec.options {
			o.QuestionID = question.ID
			if err := db.Create(&o).Error; err != nil {
				t.Fatalf("Failed to create option: %v", err)
			}
		}
	}

	return &quiz
}

// correctOptionID returns the id of the first correct option of a question,
// as the string token the wire uses.
func correctOptionID(t *testing.T, db *gorm.DB, questionID uint) string {
	t.Helper()

	var option models.Option
	err := db.Where("question_id = ? AND is_correct = ?", questionID, true).
		First(&option).Error
	if err != nil {
		t.Fatalf("Failed to find correct option: %v", err)
	}
	return strconv.FormatUint(uint64(option.ID), 10)
}
