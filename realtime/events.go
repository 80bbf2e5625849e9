// realtime/events.go - Wire events
package realtime

// Message is the envelope every websocket frame uses, both directions.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Server -> client event types.
const (
	EventConnected         = "connected"
	EventGameJoined        = "game_joined"
	EventPong              = "pong"
	EventPlayerJoined      = "player_joined"
	EventPlayerLeft        = "player_left"
	EventGameStarted       = "game_started"
	EventNextQuestion      = "next_question"
	EventAnswerResult      = "answer_result"
	EventPlayerAnswered    = "player_answered"
	EventLeaderboardUpdate = "leaderboard_update"
	EventGameFinished      = "game_finished"
	EventError             = "error"
)

// Client -> server message types.
const (
	ActionJoinGame     = "join_game"
	ActionStartGame    = "start_game"
	ActionSubmitAnswer = "submit_answer"
	ActionNextQuestion = "next_question"
	ActionFinishGame   = "finish_game"
	ActionLeaveGame    = "leave_game"
	ActionPing         = "ping"
)

// ErrorPayload travels on EventError frames.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
