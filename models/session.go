// models/session.go - Game session, player membership and answer ledger models
package models

import (
	"time"
)

// Game modes
const (
	ModeSolo        = "SOLO"
	ModeMultiplayer = "MULTIPLAYER"
)

// Session statuses. Transitions are monotonic:
// WAITING -> IN_PROGRESS -> FINISHED, no other edge exists.
const (
	StatusWaiting    = "WAITING"
	StatusInProgress = "IN_PROGRESS"
	StatusFinished   = "FINISHED"
)

// GameSession is one instance of a quiz being played, solo or multiplayer.
// Mutated only through SessionService/LedgerService transitions; read-only
// once FINISHED.
type GameSession struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuizID     uint   `gorm:"not null;index" json:"quiz_id"`
	Quiz       *Quiz  `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
	InviteCode string `gorm:"not null;index;size:12" json:"invite_code"`
	Mode       string `gorm:"not null;size:20" json:"mode"`
	Status     string `gorm:"default:'WAITING';size:20;index" json:"status"`
	HostID     uint   `gorm:"not null;index" json:"host_id"`

	// CurrentIndex is 0-based and only meaningful while IN_PROGRESS.
	CurrentIndex int `gorm:"default:0" json:"current_index"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Players []GamePlayer `gorm:"foreignKey:SessionID" json:"players,omitempty"`
}

// GamePlayer is a user's membership in a session. One row per (session, user).
type GamePlayer struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	SessionID uint  `gorm:"not null;uniqueIndex:idx_game_players_session_user" json:"session_id"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_game_players_session_user" json:"user_id"`
	User      *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Score int `gorm:"default:0" json:"score"`
	Rank  int `gorm:"default:0" json:"rank"` // assigned at finish, 0 until then

	JoinedAt  time.Time `gorm:"index" json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Answer is one recorded submission. The composite unique index is the
// anti-double-answer invariant: at most one row per (session, player, question).
// Rows are created once and never updated or deleted.
type Answer struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	SessionID  uint `gorm:"not null;uniqueIndex:idx_answers_once" json:"session_id"`
	PlayerID   uint `gorm:"not null;uniqueIndex:idx_answers_once" json:"player_id"` // GamePlayer ID
	QuestionID uint `gorm:"not null;uniqueIndex:idx_answers_once" json:"question_id"`

	Value     string `gorm:"type:text" json:"value"` // JSON-encoded submitted value
	IsCorrect bool   `json:"is_correct"`
	Points    int    `json:"points"`
	ElapsedMs int    `json:"elapsed_ms"` // client-reported, trusted for scoring only

	CreatedAt time.Time `json:"created_at"`
}

func (GameSession) TableName() string {
	return "game_sessions"
}

func (GamePlayer) TableName() string {
	return "game_players"
}

func (Answer) TableName() string {
	return "answers"
}

// IsTerminal reports whether the session reached its terminal state.
func (s *GameSession) IsTerminal() bool {
	return s.Status == StatusFinished
}

// IsHost reports whether the given user is the session host.
func (s *GameSession) IsHost(userID uint) bool {
	return s.HostID == userID
}

// Duration returns how long the game lasted, zero if it never ran to completion.
func (s *GameSession) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}
