// services/session.go - Game session lifecycle
//
// Owns every GameSession state transition. Transitions are guarded UPDATEs
// (compare-and-swap on the current status/index) so concurrent callers cannot
// double-apply them; the loser of a race observes InvalidState.
package services

import (
	"crypto/rand"
	"fmt"
	"time"

	"quizhub/apperr"
	"quizhub/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const inviteCodeLength = 8

// No ambiguous characters, codes are read out loud between players.
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type SessionService struct {
	db      *gorm.DB
	content *ContentService
}

func NewSessionService(db *gorm.DB, content *ContentService) *SessionService {
	return &SessionService{db: db, content: content}
}

// SanitizedOption is an option with its correctness flag stripped.
type SanitizedOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// SanitizedQuestion is a question payload safe to send to players before the
// game finishes: no canonical answer, no per-option correctness flags.
type SanitizedQuestion struct {
	ID      uint              `json:"id"`
	Type    string            `json:"type"`
	Text    string            `json:"text"`
	Points  int               `json:"points"`
	Options []SanitizedOption `json:"options,omitempty"`
}

// SanitizeQuestion strips every correctness-revealing field.
func SanitizeQuestion(q *models.Question) SanitizedQuestion {
	sq := SanitizedQuestion{
		ID:     q.ID,
		Type:   q.Type,
		Text:   q.Text,
		Points: q.Points,
	}
	for _, o := range q.Options {
		sq.Options = append(sq.Options, SanitizedOption{ID: o.ID, Text: o.Text})
	}
	return sq
}

type QuizRef struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	TimeLimit int    `json:"time_limit"`
}

type PlayerInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type QuestionPayload struct {
	Question  SanitizedQuestion `json:"question"`
	Index     int               `json:"index"`
	Total     int               `json:"total"`
	TimeLimit int               `json:"time_limit"` // seconds, 0 = none
}

type SessionInfo struct {
	SessionID      uint    `json:"session_id"`
	InviteCode     string  `json:"invite_code"`
	Quiz           QuizRef `json:"quiz"`
	TotalQuestions int     `json:"total_questions"`
}

type JoinResult struct {
	SessionID uint         `json:"session_id"`
	Quiz      QuizRef      `json:"quiz"`
	Players   []PlayerInfo `json:"players"`
	IsHost    bool         `json:"is_host"`
	IsRejoin  bool         `json:"is_rejoin"`
}

type RankingEntry struct {
	Rank     int    `json:"rank"`
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type FinishResult struct {
	SessionID uint           `json:"session_id"`
	Rankings  []RankingEntry `json:"rankings"`
}

// AdvanceResult carries either the next question or, past the last question,
// the final rankings of the implicitly finished session.
type AdvanceResult struct {
	Finished bool             `json:"finished"`
	Question *QuestionPayload `json:"question,omitempty"`
	Final    *FinishResult    `json:"final,omitempty"`
}

type SoloGame struct {
	SessionID      uint                `json:"session_id"`
	Quiz           QuizRef             `json:"quiz"`
	Questions      []SanitizedQuestion `json:"questions"`
	TotalQuestions int                 `json:"total_questions"`
}

// CreateSession creates a multiplayer session in WAITING state and registers
// the host as its first player.
func (s *SessionService) CreateSession(quizID uint, identity models.Identity) (*SessionInfo, error) {
	snap, err := s.content.GetQuizSnapshot(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.content.AuthorizeAccess(snap, identity); err != nil {
		return nil, err
	}
	if len(snap.Questions) == 0 {
		return nil, apperr.InvalidState("quiz has no questions")
	}

	code, err := s.generateInviteCode()
	if err != nil {
		return nil, err
	}

	session := models.GameSession{
		QuizID:     quizID,
		InviteCode: code,
		Mode:       models.ModeMultiplayer,
		Status:     models.StatusWaiting,
		HostID:     identity.UserID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		player := models.GamePlayer{
			SessionID: session.ID,
			UserID:    identity.UserID,
			JoinedAt:  time.Now(),
		}
		return tx.Create(&player).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SessionInfo{
		SessionID:      session.ID,
		InviteCode:     session.InviteCode,
		Quiz:           QuizRef{ID: snap.ID, Title: snap.Title, TimeLimit: snap.TimeLimit},
		TotalQuestions: len(snap.Questions),
	}, nil
}

// StartSolo creates a solo session that is immediately IN_PROGRESS and
// returns every question sanitized; the client paces itself.
func (s *SessionService) StartSolo(quizID uint, identity models.Identity) (*SoloGame, error) {
	snap, err := s.content.GetQuizSnapshot(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.content.AuthorizeAccess(snap, identity); err != nil {
		return nil, err
	}
	if len(snap.Questions) == 0 {
		return nil, apperr.InvalidState("quiz has no questions")
	}

	code, err := s.generateInviteCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := models.GameSession{
		QuizID:     quizID,
		InviteCode: code,
		Mode:       models.ModeSolo,
		Status:     models.StatusInProgress,
		HostID:     identity.UserID,
		StartedAt:  &now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		player := models.GamePlayer{
			SessionID: session.ID,
			UserID:    identity.UserID,
			JoinedAt:  now,
		}
		return tx.Create(&player).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start solo game: %w", err)
	}

	questions := make([]SanitizedQuestion, len(snap.Questions))
	for i := range snap.Questions {
		questions[i] = SanitizeQuestion(&snap.Questions[i])
	}

	return &SoloGame{
		SessionID:      session.ID,
		Quiz:           QuizRef{ID: snap.ID, Title: snap.Title, TimeLimit: snap.TimeLimit},
		Questions:      questions,
		TotalQuestions: len(questions),
	}, nil
}

// JoinSession adds the caller to a WAITING session found by invite code.
// Joining a session the caller is already a member of is a no-op that
// returns the current membership.
func (s *SessionService) JoinSession(inviteCode string, identity models.Identity) (*JoinResult, error) {
	var session models.GameSession
	err := s.db.Preload("Quiz").
		Where("invite_code = ? AND status <> ?", inviteCode, models.StatusFinished).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, apperr.NotFound("game not found")
	}

	var existing models.GamePlayer
	isMember := s.db.Where("session_id = ? AND user_id = ?", session.ID, identity.UserID).
		First(&existing).Error == nil

	if !isMember {
		player := models.GamePlayer{
			SessionID: session.ID,
			UserID:    identity.UserID,
			JoinedAt:  time.Now(),
		}
		// The WAITING re-check and the insert share one transaction so a join
		// cannot slip in while the host starts the game; the unique
		// (session, user) index makes a racing double-join collapse into a
		// single membership row.
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var waiting int64
			err := tx.Model(&models.GameSession{}).
				Where("id = ? AND status = ?", session.ID, models.StatusWaiting).
				Count(&waiting).Error
			if err != nil {
				return err
			}
			if waiting == 0 {
				return apperr.InvalidState("game has already started")
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&player).Error
		})
		if err != nil {
			if apperr.IsCode(err, apperr.CodeInvalidState) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to join session: %w", err)
		}
	}

	players, err := s.memberList(session.ID)
	if err != nil {
		return nil, err
	}

	result := &JoinResult{
		SessionID: session.ID,
		Players:   players,
		IsHost:    session.IsHost(identity.UserID),
		IsRejoin:  isMember,
	}
	if session.Quiz != nil {
		result.Quiz = QuizRef{ID: session.Quiz.ID, Title: session.Quiz.Title, TimeLimit: session.Quiz.TimeLimit}
	}
	return result, nil
}

// StartGame moves a WAITING session to IN_PROGRESS and returns the first
// sanitized question. Host only.
func (s *SessionService) StartGame(sessionID uint, identity models.Identity) (*QuestionPayload, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsHost(identity.UserID) {
		return nil, apperr.Forbidden("only the host can start the game")
	}

	now := time.Now()
	res := s.db.Model(&models.GameSession{}).
		Where("id = ? AND status = ?", sessionID, models.StatusWaiting).
		Updates(map[string]interface{}{
			"status":        models.StatusInProgress,
			"started_at":    now,
			"current_index": 0,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to start game: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.InvalidState("game has already started")
	}

	snap, err := s.content.GetQuizSnapshot(session.QuizID)
	if err != nil {
		return nil, err
	}

	return s.questionPayload(snap, 0), nil
}

// AdvanceQuestion moves to the next question, or finishes the session when
// the host advances past the last one. Host only.
func (s *SessionService) AdvanceQuestion(sessionID uint, identity models.Identity) (*AdvanceResult, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsHost(identity.UserID) {
		return nil, apperr.Forbidden("only the host can advance the game")
	}
	if session.Status != models.StatusInProgress {
		return nil, apperr.InvalidState("game is not in progress")
	}

	snap, err := s.content.GetQuizSnapshot(session.QuizID)
	if err != nil {
		return nil, err
	}

	nextIndex := session.CurrentIndex + 1
	if nextIndex >= len(snap.Questions) {
		final, err := s.finish(sessionID)
		if err != nil {
			return nil, err
		}
		return &AdvanceResult{Finished: true, Final: final}, nil
	}

	res := s.db.Model(&models.GameSession{}).
		Where("id = ? AND status = ? AND current_index = ?", sessionID, models.StatusInProgress, session.CurrentIndex).
		Update("current_index", nextIndex)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to advance question: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.InvalidState("question already advanced")
	}

	return &AdvanceResult{Question: s.questionPayload(snap, nextIndex)}, nil
}

// FinishSession explicitly ends an IN_PROGRESS session. Host only.
func (s *SessionService) FinishSession(sessionID uint, identity models.Identity) (*FinishResult, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsHost(identity.UserID) {
		return nil, apperr.Forbidden("only the host can finish the game")
	}
	return s.finish(sessionID)
}

// finish performs the IN_PROGRESS -> FINISHED transition and persists final
// rankings: descending score, ties broken by join order, contiguous from 1.
func (s *SessionService) finish(sessionID uint) (*FinishResult, error) {
	now := time.Now()
	res := s.db.Model(&models.GameSession{}).
		Where("id = ? AND status = ?", sessionID, models.StatusInProgress).
		Updates(map[string]interface{}{
			"status":      models.StatusFinished,
			"finished_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to finish session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.InvalidState("game is not in progress")
	}

	var players []models.GamePlayer
	err := s.db.Preload("User").
		Where("session_id = ?", sessionID).
		Order("score DESC, joined_at ASC, id ASC").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}

	rankings := make([]RankingEntry, len(players))
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i, p := range players {
			rank := i + 1
			if err := tx.Model(&models.GamePlayer{}).Where("id = ?", p.ID).Update("rank", rank).Error; err != nil {
				return err
			}
			rankings[i] = RankingEntry{
				Rank:     rank,
				ID:       p.UserID,
				Username: playerName(&p),
				Score:    p.Score,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist rankings: %w", err)
	}

	return &FinishResult{SessionID: sessionID, Rankings: rankings}, nil
}

// LeaveSession removes the caller's membership. Answers already recorded by
// the player are kept.
func (s *SessionService) LeaveSession(sessionID uint, identity models.Identity) error {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return err
	}
	if session.IsTerminal() {
		return apperr.InvalidState("game has already finished")
	}

	res := s.db.Where("session_id = ? AND user_id = ?", sessionID, identity.UserID).
		Delete(&models.GamePlayer{})
	if res.Error != nil {
		return fmt.Errorf("failed to leave session: %w", res.Error)
	}
	return nil
}

// Leaderboard returns the current ranked standings of a session.
func (s *SessionService) Leaderboard(sessionID uint) ([]RankingEntry, error) {
	var players []models.GamePlayer
	err := s.db.Preload("User").
		Where("session_id = ?", sessionID).
		Order("score DESC, joined_at ASC, id ASC").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]RankingEntry, len(players))
	for i, p := range players {
		entries[i] = RankingEntry{
			Rank:     i + 1,
			ID:       p.UserID,
			Username: playerName(&p),
			Score:    p.Score,
		}
	}
	return entries, nil
}

// GetSession loads a session with its quiz and members.
func (s *SessionService) GetSession(sessionID uint) (*models.GameSession, error) {
	var session models.GameSession
	err := s.db.Preload("Quiz").
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("score DESC, joined_at ASC, id ASC")
		}).
		Preload("Players.User").
		First(&session, sessionID).Error
	if err != nil {
		return nil, apperr.NotFound("game not found")
	}
	return &session, nil
}

type AnswerDetail struct {
	QuestionID   uint   `json:"question_id"`
	QuestionText string `json:"question_text"`
	IsCorrect    bool   `json:"is_correct"`
	Points       int    `json:"points"`
	ElapsedMs    int    `json:"elapsed_ms"`
}

type ResultsPayload struct {
	SessionID        uint           `json:"session_id"`
	Quiz             QuizRef        `json:"quiz"`
	Status           string         `json:"status"`
	Score            int            `json:"score"`
	Rank             int            `json:"rank"`
	CorrectAnswers   int            `json:"correct_answers"`
	TotalQuestions   int            `json:"total_questions"`
	MaxPossibleScore int            `json:"max_possible_score"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	FinishedAt       *time.Time     `json:"finished_at,omitempty"`
	DurationSeconds  int            `json:"duration_seconds"`
	Answers          []AnswerDetail `json:"answers"`
}

// GetResults returns the caller's result sheet for a session they played in.
func (s *SessionService) GetResults(sessionID uint, identity models.Identity) (*ResultsPayload, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	var player *models.GamePlayer
	rank := 0
	for i := range session.Players {
		if session.Players[i].UserID == identity.UserID {
			player = &session.Players[i]
			rank = i + 1
			break
		}
	}
	if player == nil {
		return nil, apperr.Forbidden("you are not part of this game")
	}

	snap, err := s.content.GetQuizSnapshot(session.QuizID)
	if err != nil {
		return nil, err
	}

	var answers []models.Answer
	err = s.db.Where("session_id = ? AND player_id = ?", sessionID, player.ID).
		Order("created_at ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	result := &ResultsPayload{
		SessionID:        session.ID,
		Status:           session.Status,
		Score:            player.Score,
		Rank:             rank,
		TotalQuestions:   len(snap.Questions),
		MaxPossibleScore: snap.MaxScore(),
		StartedAt:        session.StartedAt,
		FinishedAt:       session.FinishedAt,
		DurationSeconds:  int(session.Duration().Seconds()),
	}
	if session.Quiz != nil {
		result.Quiz = QuizRef{ID: session.Quiz.ID, Title: session.Quiz.Title, TimeLimit: session.Quiz.TimeLimit}
	}

	for _, a := range answers {
		if a.IsCorrect {
			result.CorrectAnswers++
		}
		detail := AnswerDetail{
			QuestionID: a.QuestionID,
			IsCorrect:  a.IsCorrect,
			Points:     a.Points,
			ElapsedMs:  a.ElapsedMs,
		}
		if q := snap.QuestionByID(a.QuestionID); q != nil {
			detail.QuestionText = q.Text
		}
		result.Answers = append(result.Answers, detail)
	}

	return result, nil
}

func (s *SessionService) loadSession(sessionID uint) (*models.GameSession, error) {
	var session models.GameSession
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, apperr.NotFound("game not found")
	}
	return &session, nil
}

func (s *SessionService) memberList(sessionID uint) ([]PlayerInfo, error) {
	var players []models.GamePlayer
	err := s.db.Preload("User").
		Where("session_id = ?", sessionID).
		Order("joined_at ASC, id ASC").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}

	list := make([]PlayerInfo, len(players))
	for i, p := range players {
		list[i] = PlayerInfo{ID: p.UserID, Username: playerName(&p)}
	}
	return list, nil
}

func (s *SessionService) questionPayload(snap *QuizSnapshot, index int) *QuestionPayload {
	q := &snap.Questions[index]
	return &QuestionPayload{
		Question:  SanitizeQuestion(q),
		Index:     index,
		Total:     len(snap.Questions),
		TimeLimit: q.EffectiveTimeLimit(snap.TimeLimit),
	}
}

// generateInviteCode draws random codes until one is free among non-terminal
// sessions. Codes of finished games can be reused.
func (s *SessionService) generateInviteCode() (string, error) {
	for {
		code, err := randomCode(inviteCodeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}

		var count int64
		err = s.db.Model(&models.GameSession{}).
			Where("invite_code = ? AND status <> ?", code, models.StatusFinished).
			Count(&count).Error
		if err != nil {
			return "", fmt.Errorf("failed to check invite code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}

func playerName(p *models.GamePlayer) string {
	if p.User != nil {
		return p.User.Name()
	}
	return fmt.Sprintf("Player%d", p.UserID)
}
