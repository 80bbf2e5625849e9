// handlers/quiz.go - Quiz authoring and browsing
package handlers

import (
	"strconv"

	"quizhub/middleware"
	"quizhub/services"
	"quizhub/utils"

	"github.com/gofiber/fiber/v2"
)

// CreateQuiz validates and stores a quiz with its questions.
func CreateQuiz(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	var input services.CreateQuizInput
	if err := c.BodyParser(&input); err != nil {
		return utils.FailMessage(c, 400, "Invalid request body")
	}

	quiz, err := contentSvc.CreateQuiz(identity, input)
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, fiber.Map{"quiz": quiz})
}

// ListQuizzes returns the quizzes visible to the caller.
func ListQuizzes(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	quizzes, err := contentSvc.ListQuizzes(identity)
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, fiber.Map{"quizzes": quizzes})
}

// GetQuiz returns one quiz with sanitized questions. The full question set
// including answers is only exposed to the author or an admin.
func GetQuiz(c *fiber.Ctx) error {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		return utils.FailMessage(c, 401, "Unauthorized")
	}

	quizID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.FailMessage(c, 400, "Invalid quiz id")
	}

	snap, err := contentSvc.GetQuizSnapshot(quizID)
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := contentSvc.AuthorizeAccess(snap, identity); err != nil {
		return utils.Fail(c, err)
	}

	if snap.AuthorID == identity.UserID || identity.IsAdmin() {
		return utils.OK(c, fiber.Map{"quiz": snap})
	}

	sanitized := make([]services.SanitizedQuestion, len(snap.Questions))
	for i := range snap.Questions {
		sanitized[i] = services.SanitizeQuestion(&snap.Questions[i])
	}
	return utils.OK(c, fiber.Map{
		"quiz": fiber.Map{
			"id":         snap.ID,
			"title":      snap.Title,
			"time_limit": snap.TimeLimit,
			"questions":  sanitized,
		},
	})
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
