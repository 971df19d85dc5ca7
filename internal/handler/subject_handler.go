package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/port"
	"github.com/studylens/studylens/internal/service"
)

// SubjectHandler exposes indexing and deletion of subjects.
type SubjectHandler struct {
	indexing *service.IndexingService
}

// NewSubjectHandler creates a new subject handler.
func NewSubjectHandler(indexing *service.IndexingService) *SubjectHandler {
	return &SubjectHandler{indexing: indexing}
}

// Register sets up subject routes.
func (h *SubjectHandler) Register(router fiber.Router) {
	subjects := router.Group("/subjects")
	subjects.Post("/:id/index", h.Index)
	subjects.Get("/:id", h.Get)
	subjects.Delete("/:id", h.Delete)
}

// Index chunks, embeds, and persists a subject's text, replacing any
// previous record for the same subject.
func (h *SubjectHandler) Index(c fiber.Ctx) error {
	var body struct {
		Name        string   `json:"name"`
		Text        string   `json:"text"`
		SubjectType string   `json:"subject_type"`
		SourceIDs   []string `json:"source_ids"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	rec, err := h.indexing.Index(c.Context(), c.Params("id"), body.Name, body.Text,
		domain.SubjectType(body.SubjectType), body.SourceIDs)
	if errors.Is(err, port.ErrEmptyText) || errors.Is(err, port.ErrInvalidSubjectType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"subject_id":       rec.SubjectID,
		"subject_type":     rec.SubjectType,
		"chunks":           len(rec.Chunks),
		"embedding_scheme": rec.Scheme,
	})
}

// Get returns a subject's record metadata.
func (h *SubjectHandler) Get(c fiber.Ctx) error {
	rec, err := h.indexing.Get(c.Context(), c.Params("id"))
	if errors.Is(err, port.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subject not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"subject_id":       rec.SubjectID,
		"subject_name":     rec.SubjectName,
		"subject_type":     rec.SubjectType,
		"source_ids":       rec.SourceIDs,
		"chunks":           len(rec.Chunks),
		"embedding_scheme": rec.Scheme,
		"indexed_at":       rec.IndexedAt,
	})
}

// Delete removes a subject's record. Idempotent.
func (h *SubjectHandler) Delete(c fiber.Ctx) error {
	if err := h.indexing.Delete(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true})
}
