// handlers/play.go - Solo play
//
// Solo games reuse the same session and ledger machinery as multiplayer; the
// player is the host of their own one-person session and paces themselves.
package handlers

import (
	"quizhub/middleware"
	"quizhub/services"
	"quizhub/utils"

	"github.com/gofiber/fiber/v2"
)

type StartSoloRequest struct {
	QuizID uint `json:"quiz_id"`
}

type SubmitAnswerRequest struct {
	QuestionID uint        `json:"question_id"`
	Answer     interface{} `json:"answer"`
	ElapsedMs  int         `json:"elapsed_ms"`
}

// StartSoloGame starts a solo run and returns all questions, sanitized.
func StartSoloGame(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	var req StartSoloRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.FailMessage(c, 400, "Invalid request body")
	}

	game, err := sessionSvc.StartSolo(req.QuizID, identity)
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, fiber.Map{"game": game})
}

// SubmitSoloAnswer records one answer and reveals the outcome.
func SubmitSoloAnswer(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.FailMessage(c, 400, "Invalid session id")
	}

	var req SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.FailMessage(c, 400, "Invalid request body")
	}

	result, err := ledgerSvc.SubmitAnswer(identity, services.SubmitInput{
		SessionID:  sessionID,
		QuestionID: req.QuestionID,
		Value:      req.Answer,
		ElapsedMs:  req.ElapsedMs,
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, fiber.Map{"result": result})
}

// FinishSoloGame ends the run and returns the result sheet.
func FinishSoloGame(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.FailMessage(c, 400, "Invalid session id")
	}

	if _, err := sessionSvc.FinishSession(sessionID, identity); err != nil {
		return utils.Fail(c, err)
	}

	results, err := sessionSvc.GetResults(sessionID, identity)
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, fiber.Map{"results": results})
}
