// utils/http.go - Shared HTTP response helpers
package utils

import (
	"errors"

	"quizhub/apperr"

	"github.com/gofiber/fiber/v2"
)

// OK sends a success envelope with the payload merged in.
func OK(c *fiber.Ctx, data fiber.Map) error {
	response := fiber.Map{"success": true}
	for k, v := range data {
		response[k] = v
	}
	return c.JSON(response)
}

// Created is OK with a 201 status.
func Created(c *fiber.Ctx, data fiber.Map) error {
	c.Status(fiber.StatusCreated)
	return OK(c, data)
}

// Fail renders an error. Application errors map to their HTTP status and
// expose their code; anything else becomes an opaque 500.
func Fail(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"code":    appErr.Code,
			"error":   appErr.Message,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"code":    apperr.CodeInternal,
		"error":   "Internal server error",
	})
}

// FailMessage renders a plain error without an application error value.
func FailMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
