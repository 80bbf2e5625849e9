// handlers/session.go - REST surface of the multiplayer game lifecycle
//
// Every mutation goes through SessionService; when a live room exists the
// handler mirrors the change to it so REST and websocket players stay in
// sync.
package handlers

import (
	"quizhub/middleware"
	"quizhub/realtime"
	"quizhub/utils"

	"github.com/gofiber/fiber/v2"
)

type CreateSessionRequest struct {
	QuizID uint `json:"quiz_id"`
}

type JoinSessionRequest struct {
	InviteCode string `json:"invite_code"`
}

// CreateGameSession creates a multiplayer session for a quiz.
func CreateGameSession(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.FailMessage(c, 400, "Invalid request body")
	}

	info, err := sessionSvc.CreateSession(req.QuizID, identity)
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, fiber.Map{"session": info})
}

// JoinGameSession joins a waiting session by invite code.
func JoinGameSession(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	var req JoinSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.FailMessage(c, 400, "Invalid request body")
	}
	if req.InviteCode == "" {
		return utils.FailMessage(c, 400, "Invite code required")
	}

	result, err := sessionSvc.JoinSession(req.InviteCode, identity)
	if err != nil {
		return utils.Fail(c, err)
	}

	if !result.IsRejoin {
		notifyRoom(result.SessionID, realtime.Message{
			Type: realtime.EventPlayerJoined,
			Payload: fiber.Map{
				"player":       fiber.Map{"id": identity.UserID, "username": identity.Username},
				"player_count": len(result.Players),
			},
		})
	}

	return utils.OK(c, fiber.Map{"session": result})
}

// GetGameSession returns the current state of a session.
func GetGameSession(c *fiber.Ctx) error {
	if _, err := middleware.GetIdentity(c); err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.FailMessage(c, 400, "Invalid session id")
	}

	session, err := sessionSvc.GetSession(sessionID)
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, fiber.Map{"session": session})
}

// GetLeaderboard returns live standings for a session.
func GetLeaderboard(c *fiber.Ctx) error {
	if _, err := middleware.GetIdentity(c); err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.FailMessage(c, 400, "Invalid session id")
	}

	entries, err := sessionSvc.Leaderboard(sessionID)
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, fiber.Map{"leaderboard": entries})
}

// GetGameResults returns the caller's result sheet for a session.
func GetGameResults(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.FailMessage(c, 400, "Invalid session id")
	}

	results, err := sessionSvc.GetResults(sessionID, identity)
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, fiber.Map{"results": results})
}

// FinishGameSession ends a running session. Host only.
func FinishGameSession(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.FailMessage(c, 400, "Invalid session id")
	}

	final, err := sessionSvc.FinishSession(sessionID, identity)
	if err != nil {
		return utils.Fail(c, err)
	}

	notifyRoom(sessionID, realtime.Message{
		Type:    realtime.EventGameFinished,
		Payload: final,
	})

	return utils.OK(c, fiber.Map{"final": final})
}

// LeaveGameSession removes the caller from a session.
func LeaveGameSession(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.FailMessage(c, 400, "Invalid session id")
	}

	if err := sessionSvc.LeaveSession(sessionID, identity); err != nil {
		return utils.Fail(c, err)
	}

	remaining, _ := sessionSvc.Leaderboard(sessionID)
	notifyRoom(sessionID, realtime.Message{
		Type: realtime.EventPlayerLeft,
		Payload: fiber.Map{
			"player":       fiber.Map{"id": identity.UserID, "username": identity.Username},
			"player_count": len(remaining),
		},
	})

	return utils.OK(c, fiber.Map{})
}

// notifyRoom broadcasts to the live room if one exists.
func notifyRoom(sessionID uint, msg realtime.Message) {
	if room := gameHub.Room(sessionID); room != nil {
		room.Broadcast(msg)
	}
}
