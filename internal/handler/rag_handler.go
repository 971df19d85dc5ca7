package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/studylens/studylens/internal/domain"
	"github.com/studylens/studylens/internal/port"
	"github.com/studylens/studylens/internal/service"
)

// RAGHandler exposes question answering over indexed subjects.
type RAGHandler struct {
	rag *service.RAGService
}

// NewRAGHandler creates a new RAG handler.
func NewRAGHandler(rag *service.RAGService) *RAGHandler {
	return &RAGHandler{rag: rag}
}

// Register sets up RAG routes.
func (h *RAGHandler) Register(router fiber.Router) {
	router.Post("/ask", h.Ask)
}

// Ask answers a natural-language question, optionally scoped to one
// subject and informed by the student's learning state.
func (h *RAGHandler) Ask(c fiber.Ctx) error {
	var body struct {
		Question      string   `json:"question"`
		SubjectID     string   `json:"subject_id"`
		LearningStage string   `json:"learning_stage"`
		KeyPoints     []string `json:"key_points"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	answer, err := h.rag.Answer(c.Context(), body.Question, domain.QueryContext{
		SubjectID:     body.SubjectID,
		LearningStage: body.LearningStage,
		KeyPoints:     body.KeyPoints,
	})
	if errors.Is(err, port.ErrEmptyText) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question is required"})
	}
	if errors.Is(err, port.ErrGenerationFailed) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "could not generate an answer, please retry",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(answer)
}
