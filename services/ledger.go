// services/ledger.go - Answer ledger
//
// Records each player's answer exactly once per question. The unique
// (session, player, question) index is the invariant; the insert and the
// score increment commit in the same transaction so the player's score is
// always the sum of their recorded answers.
package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"quizhub/apperr"
	"quizhub/models"
	"quizhub/scoring"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerService struct {
	db      *gorm.DB
	content *ContentService
}

func NewLedgerService(db *gorm.DB, content *ContentService) *LedgerService {
	return &LedgerService{db: db, content: content}
}

// SubmitInput is one answer submission. Value is the raw decoded JSON value:
// a single token, an array of tokens, or free text depending on the question.
type SubmitInput struct {
	SessionID  uint
	QuestionID uint
	Value      interface{}
	ElapsedMs  int
}

// SubmitResult reveals correctness and the canonical answer to the submitting
// player only; broadcasts to the room never carry it.
type SubmitResult struct {
	QuestionID    uint   `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	Points        int    `json:"points"`
	TotalScore    int    `json:"total_score"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// SubmitAnswer validates, scores and records a single answer.
//
// Check order matters: session exists and is IN_PROGRESS, caller is a member,
// the question belongs to the quiz and (in multiplayer) is the current one,
// and no prior answer exists for this (session, player, question). Duplicate
// detection rides on the unique index so two racing submissions cannot both
// land.
func (s *LedgerService) SubmitAnswer(identity models.Identity, input SubmitInput) (*SubmitResult, error) {
	var session models.GameSession
	if err := s.db.First(&session, input.SessionID).Error; err != nil {
		return nil, apperr.NotFound("game not found")
	}
	if session.Status != models.StatusInProgress {
		return nil, apperr.InvalidState("game is not in progress")
	}

	var player models.GamePlayer
	err := s.db.Where("session_id = ? AND user_id = ?", session.ID, identity.UserID).
		First(&player).Error
	if err != nil {
		return nil, apperr.NotFound("you are not part of this game")
	}

	snap, err := s.content.GetQuizSnapshot(session.QuizID)
	if err != nil {
		return nil, err
	}

	question := snap.QuestionByID(input.QuestionID)
	if question == nil {
		return nil, apperr.NotFound("question does not belong to this quiz")
	}
	if session.Mode == models.ModeMultiplayer {
		if session.CurrentIndex >= len(snap.Questions) {
			return nil, apperr.InvalidState("game is past its last question")
		}
		if snap.Questions[session.CurrentIndex].ID != question.ID {
			return nil, apperr.InvalidState("answer is not for the current question")
		}
	}

	submitted := scoring.NormalizeSubmission(input.Value)
	options := scoring.OptionsFromModel(question.Options)

	elapsedMs := input.ElapsedMs
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	limitMs := question.EffectiveTimeLimit(snap.TimeLimit) * 1000

	isCorrect, points, err := scoring.ValidateAndScore(
		question.Type, submitted, options, question.CorrectAnswer,
		question.Points, elapsedMs, limitMs,
	)
	if err != nil {
		return nil, err
	}

	rawValue, err := json.Marshal(input.Value)
	if err != nil {
		return nil, apperr.Validation("answer value is not serializable")
	}

	answer := models.Answer{
		SessionID:  session.ID,
		PlayerID:   player.ID,
		QuestionID: question.ID,
		Value:      string(rawValue),
		IsCorrect:  isCorrect,
		Points:     points,
		ElapsedMs:  elapsedMs,
	}

	totalScore, err := s.record(session.ID, player.ID, &answer, points)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	return &SubmitResult{
		QuestionID:    question.ID,
		IsCorrect:     isCorrect,
		Points:        points,
		TotalScore:    totalScore,
		CorrectAnswer: correctAnswerOf(question),
		Explanation:   question.Explanation,
	}, nil
}

// record commits one answer and returns the player's total score after it.
// The status re-check, the insert and the increment share one transaction:
// an answer can never land after finish flipped the session to FINISHED, and
// the reported total always reflects every committed answer.
func (s *LedgerService) record(sessionID, playerID uint, answer *models.Answer, points int) (int, error) {
	totalScore := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var live int64
		err := tx.Model(&models.GameSession{}).
			Where("id = ? AND status = ?", sessionID, models.StatusInProgress).
			Count(&live).Error
		if err != nil {
			return err
		}
		if live == 0 {
			return apperr.InvalidState("game is not in progress")
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(answer)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("question already answered")
		}

		if points != 0 {
			err := tx.Model(&models.GamePlayer{}).
				Where("id = ?", playerID).
				Update("score", gorm.Expr("score + ?", points)).Error
			if err != nil {
				return err
			}
		}

		var player models.GamePlayer
		if err := tx.First(&player, playerID).Error; err != nil {
			return err
		}
		totalScore = player.Score
		return nil
	})
	return totalScore, err
}

// HasAnswered reports whether the player already answered the question.
func (s *LedgerService) HasAnswered(sessionID, playerID, questionID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Answer{}).
		Where("session_id = ? AND player_id = ? AND question_id = ?", sessionID, playerID, questionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check answer: %w", err)
	}
	return count > 0, nil
}

// AnswerCount returns how many answers the question received in the session.
func (s *LedgerService) AnswerCount(sessionID, questionID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Answer{}).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return count, nil
}

// correctAnswerOf renders the question's reveal text: the canonical answer
// for text input, otherwise the text of the correct option(s).
func correctAnswerOf(q *models.Question) string {
	if !q.HasOptions() || q.CorrectAnswer != "" {
		return q.CorrectAnswer
	}

	var texts []string
	for _, o := range q.Options {
		if o.IsCorrect {
			texts = append(texts, o.Text)
		}
	}
	if len(texts) == 0 {
		return ""
	}
	if len(texts) == 1 {
		return texts[0]
	}

	result := texts[0]
	for _, t := range texts[1:] {
		result += ", " + t
	}
	return result
}
