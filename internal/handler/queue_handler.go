package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/studylens/studylens/internal/queue"
)

// QueueHandler exposes inference queue state for operators.
type QueueHandler struct {
	queue *queue.Queue
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(q *queue.Queue) *QueueHandler {
	return &QueueHandler{queue: q}
}

// Register sets up queue routes.
func (h *QueueHandler) Register(router fiber.Router) {
	router.Get("/queue/status", h.Status)
}

// Status returns a snapshot of the inference queue.
func (h *QueueHandler) Status(c fiber.Ctx) error {
	return c.JSON(h.queue.Stats())
}
