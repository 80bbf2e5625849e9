package services

import (
	"strconv"
	"testing"

	"quizhub/apperr"
	"quizhub/models"

	"gorm.io/gorm"
)

type ledgerHarness struct {
	db       *gorm.DB
	sessions *SessionService
	ledger   *LedgerService
	host     models.Identity
	guest    models.Identity
	info     *SessionInfo
	snap     *QuizSnapshot
}

// startedGame builds a two-player multiplayer game sitting on the first question.
func startedGame(t *testing.T) *ledgerHarness {
	t.Helper()

	db := setupTestDB(t)
	content := NewContentService(db)
	sessions := NewSessionService(db, content)
	ledger := NewLedgerService(db, content)

	host := createTestUser(t, db, "host")
	guest := createTestUser(t, db, "guest")
	quiz := createTestQuiz(t, db, host.UserID)

	info, err := sessions.CreateSession(quiz.ID, host)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := sessions.JoinSession(info.InviteCode, guest); err != nil {
		t.Fatalf("JoinSession failed: %v", err)
	}
	if _, err := sessions.StartGame(info.SessionID, host); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	snap, err := content.GetQuizSnapshot(quiz.ID)
	if err != nil {
		t.Fatalf("GetQuizSnapshot failed: %v", err)
	}

	return &ledgerHarness{
		db:       db,
		sessions: sessions,
		ledger:   ledger,
		host:     host,
		guest:    guest,
		info:     info,
		snap:     snap,
	}
}

func TestSubmitAnswer_Correct(t *testing.T) {
	h := startedGame(t)
	q := h.snap.Questions[0]
	token := correctOptionID(t, h.db, q.ID)

	result, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{
		SessionID:  h.info.SessionID,
		QuestionID: q.ID,
		Value:      token,
		ElapsedMs:  0,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if !result.IsCorrect {
		t.Error("Expected a correct answer")
	}
	if result.Points != q.Points {
		t.Errorf("Expected full %d points for an instant answer, got %d", q.Points, result.Points)
	}
	if result.CorrectAnswer != "Paris" {
		t.Errorf("Expected the correct option text revealed, got %q", result.CorrectAnswer)
	}
	if result.TotalScore != result.Points {
		t.Errorf("Expected total score %d, got %d", result.Points, result.TotalScore)
	}
}

func TestSubmitAnswer_TimePenalty(t *testing.T) {
	h := startedGame(t)
	q := h.snap.Questions[0]
	token := correctOptionID(t, h.db, q.ID)

	// 30s quiz limit, answered at the 15s mark.
	result, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{
		SessionID:  h.info.SessionID,
		QuestionID: q.ID,
		Value:      token,
		ElapsedMs:  15000,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if result.Points != 8 {
		t.Errorf("Expected 8 points at the halfway mark, got %d", result.Points)
	}
}

func TestSubmitAnswer_Incorrect(t *testing.T) {
	h := startedGame(t)
	q := h.snap.Questions[0]

	var wrong string
	for _, o := range q.Options {
		if !o.IsCorrect {
			wrong = strconv.FormatUint(uint64(o.ID), 10)
			break
		}
	}

	result, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{
		SessionID:  h.info.SessionID,
		QuestionID: q.ID,
		Value:      wrong,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if result.IsCorrect {
		t.Error("Expected a wrong answer")
	}
	if result.Points != 0 {
		t.Errorf("Expected 0 points, got %d", result.Points)
	}
	if result.CorrectAnswer != "Paris" {
		t.Errorf("Expected the correct answer revealed even when wrong, got %q", result.CorrectAnswer)
	}
}

func TestSubmitAnswer_Duplicate(t *testing.T) {
	h := startedGame(t)
	q := h.snap.Questions[0]
	token := correctOptionID(t, h.db, q.ID)

	input := SubmitInput{SessionID: h.info.SessionID, QuestionID: q.ID, Value: token}
	if _, err := h.ledger.SubmitAnswer(h.guest, input); err != nil {
		t.Fatalf("First submit failed: %v", err)
	}

	if _, err := h.ledger.SubmitAnswer(h.guest, input); !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("Expected conflict for a duplicate answer, got %v", err)
	}

	// The duplicate did not double the score.
	var player models.GamePlayer
	err := h.db.Where("session_id = ? AND user_id = ?", h.info.SessionID, h.guest.UserID).
		First(&player).Error
	if err != nil {
		t.Fatalf("Failed to load player: %v", err)
	}
	if player.Score != q.Points {
		t.Errorf("Expected score %d after duplicate rejection, got %d", q.Points, player.Score)
	}

	// Both players answering is fine, the index is per player.
	if _, err := h.ledger.SubmitAnswer(h.host, input); err != nil {
		t.Errorf("Expected the host's own answer to land, got %v", err)
	}
}

func TestSubmitAnswer_Guards(t *testing.T) {
	h := startedGame(t)
	q0 := h.snap.Questions[0]
	q1 := h.snap.Questions[1]
	token := correctOptionID(t, h.db, q0.ID)
	outsider := createTestUser(t, h.db, "outsider")

	if _, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{SessionID: 9999, QuestionID: q0.ID, Value: token}); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("Expected not found for an unknown session, got %v", err)
	}

	if _, err := h.ledger.SubmitAnswer(outsider, SubmitInput{SessionID: h.info.SessionID, QuestionID: q0.ID, Value: token}); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("Expected not found for a non-member, got %v", err)
	}

	// The current question is index 0; answering question 1 is early.
	if _, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{SessionID: h.info.SessionID, QuestionID: q1.ID, Value: "x"}); !apperr.IsCode(err, apperr.CodeInvalidState) {
		t.Errorf("Expected invalid state for a non-current question, got %v", err)
	}

	if _, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{SessionID: h.info.SessionID, QuestionID: 9999, Value: "x"}); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("Expected not found for a foreign question, got %v", err)
	}

	if _, err := h.sessions.FinishSession(h.info.SessionID, h.host); err != nil {
		t.Fatalf("FinishSession failed: %v", err)
	}
	if _, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{SessionID: h.info.SessionID, QuestionID: q0.ID, Value: token}); !apperr.IsCode(err, apperr.CodeInvalidState) {
		t.Errorf("Expected invalid state after finish, got %v", err)
	}
}

func TestSubmitAnswer_ScoreIsSumOfAnswers(t *testing.T) {
	h := startedGame(t)

	total := 0
	for i, q := range h.snap.Questions {
		var value interface{}
		if q.Type == models.QuestionTextInput {
			value = q.CorrectAnswer
		} else {
			value = correctOptionID(t, h.db, q.ID)
		}

		result, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{
			SessionID:  h.info.SessionID,
			QuestionID: q.ID,
			Value:      value,
		})
		if err != nil {
			t.Fatalf("Submit for question %d failed: %v", i, err)
		}
		total += result.Points
		if result.TotalScore != total {
			t.Errorf("Expected running total %d after question %d, got %d", total, i, result.TotalScore)
		}

		if i < len(h.snap.Questions)-1 {
			if _, err := h.sessions.AdvanceQuestion(h.info.SessionID, h.host); err != nil {
				t.Fatalf("AdvanceQuestion failed: %v", err)
			}
		}
	}

	var player models.GamePlayer
	err := h.db.Where("session_id = ? AND user_id = ?", h.info.SessionID, h.guest.UserID).
		First(&player).Error
	if err != nil {
		t.Fatalf("Failed to load player: %v", err)
	}
	if player.Score != total {
		t.Errorf("Expected score %d to equal the sum of awarded points, got %d", total, player.Score)
	}
	if player.Score != 40 {
		t.Errorf("Expected 40 points for three instant correct answers, got %d", player.Score)
	}
}

func TestSubmitAnswer_SoloAnyOrder(t *testing.T) {
	db := setupTestDB(t)
	content := NewContentService(db)
	sessions := NewSessionService(db, content)
	ledger := NewLedgerService(db, content)
	player := createTestUser(t, db, "solo")
	quiz := createTestQuiz(t, db, player.UserID)

	game, err := sessions.StartSolo(quiz.ID, player)
	if err != nil {
		t.Fatalf("StartSolo failed: %v", err)
	}

	// Solo games accept answers for any question, in any order.
	last := game.Questions[len(game.Questions)-1]
	result, err := ledger.SubmitAnswer(player, SubmitInput{
		SessionID:  game.SessionID,
		QuestionID: last.ID,
		Value:      "1912",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if !result.IsCorrect {
		t.Error("Expected the text answer to match")
	}
}

func TestHasAnsweredAndCount(t *testing.T) {
	h := startedGame(t)
	q := h.snap.Questions[0]
	token := correctOptionID(t, h.db, q.ID)

	var player models.GamePlayer
	if err := h.db.Where("session_id = ? AND user_id = ?", h.info.SessionID, h.guest.UserID).First(&player).Error; err != nil {
		t.Fatalf("Failed to load player: %v", err)
	}

	answered, err := h.ledger.HasAnswered(h.info.SessionID, player.ID, q.ID)
	if err != nil || answered {
		t.Errorf("Expected no answer yet, got answered=%v err=%v", answered, err)
	}

	if _, err := h.ledger.SubmitAnswer(h.guest, SubmitInput{SessionID: h.info.SessionID, QuestionID: q.ID, Value: token}); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	answered, err = h.ledger.HasAnswered(h.info.SessionID, player.ID, q.ID)
	if err != nil || !answered {
		t.Errorf("Expected an answer recorded, got answered=%v err=%v", answered, err)
	}

	count, err := h.ledger.AnswerCount(h.info.SessionID, q.ID)
	if err != nil || count != 1 {
		t.Errorf("Expected answer count 1, got %d err=%v", count, err)
	}
}

func TestRecordAnswer_RejectsFinishedSession(t *testing.T) {
	h := startedGame(t)
	q := h.snap.Questions[0]

	var player models.GamePlayer
	if err := h.db.Where("session_id = ? AND user_id = ?", h.info.SessionID, h.guest.UserID).First(&player).Error; err != nil {
		t.Fatalf("Failed to load player: %v", err)
	}

	// The session finishes after validation already saw it IN_PROGRESS; the
	// transactional re-check must still reject the commit.
	if _, err := h.sessions.FinishSession(h.info.SessionID, h.host); err != nil {
		t.Fatalf("FinishSession failed: %v", err)
	}

	answer := models.Answer{
		SessionID:  h.info.SessionID,
		PlayerID:   player.ID,
		QuestionID: q.ID,
		Value:      `"late"`,
		IsCorrect:  true,
		Points:     q.Points,
	}
	if _, err := h.ledger.record(h.info.SessionID, player.ID, &answer, q.Points); !apperr.IsCode(err, apperr.CodeInvalidState) {
		t.Errorf("Expected invalid state from the transactional guard, got %v", err)
	}

	var count int64
	if err := h.db.Model(&models.Answer{}).Where("session_id = ?", h.info.SessionID).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count answers: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no answer to land after finish, got %d", count)
	}
}

func TestRecordAnswer_TotalReflectsCommittedScore(t *testing.T) {
	h := startedGame(t)
	q := h.snap.Questions[0]

	var player models.GamePlayer
	if err := h.db.Where("session_id = ? AND user_id = ?", h.info.SessionID, h.guest.UserID).First(&player).Error; err != nil {
		t.Fatalf("Failed to load player: %v", err)
	}

	// Points awarded after the caller loaded the membership row, as a
	// concurrent submission would.
	if err := h.db.Model(&models.GamePlayer{}).Where("id = ?", player.ID).Update("score", 5).Error; err != nil {
		t.Fatalf("Failed to seed score: %v", err)
	}

	answer := models.Answer{
		SessionID:  h.info.SessionID,
		PlayerID:   player.ID,
		QuestionID: q.ID,
		Value:      `"x"`,
		IsCorrect:  true,
		Points:     q.Points,
	}
	total, err := h.ledger.record(h.info.SessionID, player.ID, &answer, q.Points)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if want := 5 + q.Points; total != want {
		t.Errorf("Expected total %d including the concurrent award, got %d", want, total)
	}
}
