package controller

import (
	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/serverutils"
	"ai-docqa-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Reprocess(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
	auth            fiber.Handler
}

func NewDocumentController(documentService service.IDocumentService, auth fiber.Handler) IDocumentController {
	return &documentController{
		documentService: documentService,
		auth:            auth,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Use(c.auth)
	h.Post("/", c.Upload)
	h.Get("/", c.List)
	h.Get("/:id", c.Show)
	h.Delete("/:id", c.Delete)
	h.Post("/:id/reprocess", c.Reprocess)
	h.Post("/:id/cancel", c.Cancel)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Multipart field 'file' is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := c.documentService.Upload(ctx.UserContext(), userId, fh.Filename, fh.Size, f)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document uploaded, processing started", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.ListDocumentsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.List(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	userId, id, err := userAndDocument(ctx)
	if err != nil {
		return err
	}

	res, err := c.documentService.Show(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show document", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	userId, id, err := userAndDocument(ctx)
	if err != nil {
		return err
	}

	if err := c.documentService.Delete(ctx.UserContext(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete document", nil))
}

func (c *documentController) Reprocess(ctx *fiber.Ctx) error {
	userId, id, err := userAndDocument(ctx)
	if err != nil {
		return err
	}

	res, err := c.documentService.Reprocess(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Reprocessing queued", res))
}

func (c *documentController) Cancel(ctx *fiber.Ctx) error {
	userId, id, err := userAndDocument(ctx)
	if err != nil {
		return err
	}

	res, err := c.documentService.Cancel(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Cancellation requested", res))
}

func userAndDocument(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid document id")
	}
	return userId, id, nil
}
