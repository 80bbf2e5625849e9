// handlers/multiplayer.go - WebSocket gateway for live games
//
// One goroutine reads the connection, one drains the buffered send channel.
// Every game mutation runs inside Room.Do so its broadcast lands before the
// next mutation's broadcast, on every connection.
package handlers

import (
	"encoding/json"
	"log"
	"time"

	"quizhub/apperr"
	"quizhub/middleware"
	"quizhub/models"
	"quizhub/realtime"
	"quizhub/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	// WebSocket timeouts
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 15 * time.Second

	// Send channel buffer size
	sendBufferSize = 256
)

// clientMessage is an inbound frame; the payload is decoded per action.
type clientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinGamePayload struct {
	InviteCode string `json:"invite_code"`
}

type submitAnswerPayload struct {
	QuestionID uint        `json:"question_id"`
	Answer     interface{} `json:"answer"`
	ElapsedMs  int         `json:"elapsed_ms"`
}

// wsClient is one live connection. It implements realtime.Sender.
type wsClient struct {
	conn     *websocket.Conn
	identity models.Identity
	send     chan realtime.Message
	done     chan struct{}

	// sessionID is the game this connection joined, 0 before join_game.
	sessionID uint
	client    *realtime.Client
}

// Send queues an outbound message without blocking the broadcaster.
func (c *wsClient) Send(msg realtime.Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// CloseSlow is called by the hub after a failed Send.
func (c *wsClient) CloseSlow() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// UpgradeMiddleware gates /ws: only websocket upgrades with a valid token
// pass. The token rides in a query parameter because browsers cannot set
// headers on websocket connects.
func UpgradeMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		token = c.Cookies("token")
	}

	identity, err := middleware.ParseIdentity(token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid or missing token"})
	}

	c.Locals("identity", identity)
	return c.Next()
}

// WebSocketHandler runs one connection's lifecycle.
var WebSocketHandler = websocket.New(func(conn *websocket.Conn) {
	identity, ok := conn.Locals("identity").(models.Identity)
	if !ok {
		conn.Close()
		return
	}

	client := &wsClient{
		conn:     conn,
		identity: identity,
		send:     make(chan realtime.Message, sendBufferSize),
		done:     make(chan struct{}),
	}
	client.client = realtime.NewClient(identity.UserID, identity.Username, client)

	log.Printf("🎮 Player connected: %s (UserID: %d)", identity.Username, identity.UserID)

	client.Send(realtime.Message{
		Type: realtime.EventConnected,
		Payload: fiber.Map{
			"user_id":  identity.UserID,
			"username": identity.Username,
		},
	})

	go client.writePump()
	client.readPump()

	client.disconnect()
	log.Printf("🔌 Player disconnected: %s (UserID: %d)", identity.Username, identity.UserID)
})

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.CloseSlow()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.CloseSlow()
				return
			}
		case <-c.done:
			c.conn.Close()
			return
		}
	}
}

// readPump dispatches inbound frames until the connection drops.
func (c *wsClient) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.done:
			return
		default:
		}

		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		c.handleMessage(msg)
	}
}

func (c *wsClient) handleMessage(msg clientMessage) {
	switch msg.Type {
	case realtime.ActionJoinGame:
		c.handleJoin(msg.Payload)
	case realtime.ActionStartGame:
		c.handleStart()
	case realtime.ActionSubmitAnswer:
		c.handleSubmitAnswer(msg.Payload)
	case realtime.ActionNextQuestion:
		c.handleNextQuestion()
	case realtime.ActionFinishGame:
		c.handleFinish()
	case realtime.ActionLeaveGame:
		c.handleLeave()
	case realtime.ActionPing:
		c.Send(realtime.Message{Type: realtime.EventPong})
	default:
		c.sendError(apperr.Validation("unknown message type: " + msg.Type))
	}
}

func (c *wsClient) handleJoin(payload json.RawMessage) {
	var req joinGamePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.InviteCode == "" {
		c.sendError(apperr.Validation("invite_code is required"))
		return
	}

	result, err := sessionSvc.JoinSession(req.InviteCode, c.identity)
	if err != nil {
		c.sendError(err)
		return
	}

	// Re-joining from a second tab just resubscribes.
	if c.sessionID != 0 && c.sessionID != result.SessionID {
		c.detachRoom()
	}
	c.sessionID = result.SessionID
	room := gameHub.Join(result.SessionID, c.client)

	c.Send(realtime.Message{Type: realtime.EventGameJoined, Payload: result})

	if !result.IsRejoin {
		room.Broadcast(realtime.Message{
			Type: realtime.EventPlayerJoined,
			Payload: fiber.Map{
				"player":       fiber.Map{"id": c.identity.UserID, "username": c.identity.Username},
				"player_count": len(result.Players),
			},
		})
	}
}

func (c *wsClient) handleStart() {
	room, ok := c.room()
	if !ok {
		return
	}

	room.Do(func(emit func(realtime.Message)) {
		payload, err := sessionSvc.StartGame(c.sessionID, c.identity)
		if err != nil {
			c.sendError(err)
			return
		}

		emit(realtime.Message{Type: realtime.EventGameStarted, Payload: payload})
	})
}

func (c *wsClient) handleSubmitAnswer(payload json.RawMessage) {
	room, ok := c.room()
	if !ok {
		return
	}

	var req submitAnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.sendError(apperr.Validation("malformed answer payload"))
		return
	}

	result, err := ledgerSvc.SubmitAnswer(c.identity, services.SubmitInput{
		SessionID:  c.sessionID,
		QuestionID: req.QuestionID,
		Value:      req.Answer,
		ElapsedMs:  req.ElapsedMs,
	})
	if err != nil {
		c.sendError(err)
		return
	}

	// Outcome goes to the submitter alone; the room only learns that the
	// player answered and how the standings moved.
	c.Send(realtime.Message{Type: realtime.EventAnswerResult, Payload: result})

	// Snapshots are read inside Do so a fresher leaderboard can never be
	// broadcast before a staler one.
	room.Do(func(emit func(realtime.Message)) {
		answerCount, _ := ledgerSvc.AnswerCount(c.sessionID, req.QuestionID)
		entries, err := sessionSvc.Leaderboard(c.sessionID)
		if err != nil {
			return
		}

		emit(realtime.Message{
			Type: realtime.EventPlayerAnswered,
			Payload: fiber.Map{
				"player":       fiber.Map{"id": c.identity.UserID, "username": c.identity.Username},
				"question_id":  req.QuestionID,
				"answer_count": answerCount,
			},
		})
		emit(realtime.Message{Type: realtime.EventLeaderboardUpdate, Payload: fiber.Map{"leaderboard": entries}})
	})
}

func (c *wsClient) handleNextQuestion() {
	room, ok := c.room()
	if !ok {
		return
	}

	room.Do(func(emit func(realtime.Message)) {
		result, err := sessionSvc.AdvanceQuestion(c.sessionID, c.identity)
		if err != nil {
			c.sendError(err)
			return
		}

		if result.Finished {
			emit(realtime.Message{Type: realtime.EventGameFinished, Payload: result.Final})
			return
		}
		emit(realtime.Message{Type: realtime.EventNextQuestion, Payload: result.Question})
	})
}

func (c *wsClient) handleFinish() {
	room, ok := c.room()
	if !ok {
		return
	}

	room.Do(func(emit func(realtime.Message)) {
		final, err := sessionSvc.FinishSession(c.sessionID, c.identity)
		if err != nil {
			c.sendError(err)
			return
		}
		emit(realtime.Message{Type: realtime.EventGameFinished, Payload: final})
	})
}

func (c *wsClient) handleLeave() {
	if c.sessionID == 0 {
		return
	}

	if err := sessionSvc.LeaveSession(c.sessionID, c.identity); err != nil {
		c.sendError(err)
		return
	}

	sessionID := c.sessionID
	c.detachRoom()

	remaining, _ := sessionSvc.Leaderboard(sessionID)
	notifyRoom(sessionID, realtime.Message{
		Type: realtime.EventPlayerLeft,
		Payload: fiber.Map{
			"player":       fiber.Map{"id": c.identity.UserID, "username": c.identity.Username},
			"player_count": len(remaining),
		},
	})
}

// disconnect handles a dropped connection. Membership survives; the room is
// only told the player went offline if no other tab keeps them present.
func (c *wsClient) disconnect() {
	c.CloseSlow()

	if c.sessionID == 0 {
		return
	}
	sessionID := c.sessionID
	c.detachRoom()

	if room := gameHub.Room(sessionID); room != nil && !room.HasUser(c.identity.UserID) {
		room.Broadcast(realtime.Message{
			Type: realtime.EventPlayerLeft,
			Payload: fiber.Map{
				"player":  fiber.Map{"id": c.identity.UserID, "username": c.identity.Username},
				"offline": true,
			},
		})
	}
}

func (c *wsClient) detachRoom() {
	if c.sessionID != 0 {
		gameHub.Leave(c.sessionID, c.client)
		c.sessionID = 0
	}
}

func (c *wsClient) room() (*realtime.Room, bool) {
	if c.sessionID == 0 {
		c.sendError(apperr.InvalidState("join a game first"))
		return nil, false
	}
	room := gameHub.Room(c.sessionID)
	if room == nil {
		c.sendError(apperr.InvalidState("join a game first"))
		return nil, false
	}
	return room, true
}

func (c *wsClient) sendError(err error) {
	c.Send(realtime.Message{
		Type: realtime.EventError,
		Payload: realtime.ErrorPayload{
			Code:    string(apperr.CodeOf(err)),
			Message: err.Error(),
		},
	})
}
