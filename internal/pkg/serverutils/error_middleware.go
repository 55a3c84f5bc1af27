package serverutils

import (
	"errors"

	"ai-docqa-be/internal/constant"
	"ai-docqa-be/pkg/ragerr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the standard
// error envelope. Unknown errors never leak their text.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			res := ErrorResponse(fiber.StatusBadRequest, verr.Message)
			res.Errors = verr.Fields
			return ctx.Status(fiber.StatusBadRequest).JSON(res)
		}

		code, message := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

// StatusFor maps an error to an HTTP status and a user-facing message.
func StatusFor(err error) (int, string) {
	var ferr *fiber.Error
	switch {
	case errors.As(err, &ferr):
		return ferr.Code, ferr.Message
	case errors.Is(err, constant.ErrDocumentNotFound), errors.Is(err, constant.ErrChatSessionNotFound):
		return fiber.StatusNotFound, capitalize(err)
	case errors.Is(err, constant.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge, capitalize(err)
	case errors.Is(err, constant.ErrEmptyFile):
		return fiber.StatusBadRequest, capitalize(err)
	case errors.Is(err, constant.ErrFileTypeNotAllowed):
		return fiber.StatusUnsupportedMediaType, capitalize(err)
	case errors.Is(err, constant.ErrInvalidDocumentState):
		return fiber.StatusConflict, capitalize(err)
	}

	switch ragerr.KindOf(err) {
	case ragerr.KindUnsupportedFormat:
		return fiber.StatusUnsupportedMediaType, "This file format is not supported"
	case ragerr.KindExtraction:
		return fiber.StatusUnprocessableEntity, "The file could not be read"
	case ragerr.KindEmbedding, ragerr.KindIndex:
		return fiber.StatusServiceUnavailable, "Search is temporarily unavailable, please try again"
	}
	return fiber.StatusInternalServerError, "Internal server error"
}

func capitalize(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	if c := msg[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + msg[1:]
	}
	return msg
}
