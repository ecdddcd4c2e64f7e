package websocket

import (
	"context"
	"sync"
	"time"

	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/pkg/serverutils"
	"rag-chat-be/internal/service"
	"rag-chat-be/pkg/rag/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const writeWait = 10 * time.Second

// connEmitter adapts a websocket connection to the workflow's stream
// boundary. Writes are serialized; the first failed write marks the client
// gone so the workflow can fall back to partial persistence.
type connEmitter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newConnEmitter(conn *websocket.Conn) *connEmitter {
	return &connEmitter{conn: conn}
}

func (e *connEmitter) write(event workflow.StreamEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return e.conn.WriteJSON(event)
}

func (e *connEmitter) Delta(content string) error {
	return e.write(workflow.StreamEvent{Type: workflow.EventDelta, Content: content})
}

func (e *connEmitter) Done(messageId uuid.UUID, chunks int) error {
	return e.write(workflow.StreamEvent{Type: workflow.EventDone, MessageId: &messageId, Chunks: chunks})
}

func (e *connEmitter) Error(code, message string) error {
	return e.write(workflow.StreamEvent{Type: workflow.EventError, Code: code, Message: message})
}

// StreamHandler serves streaming chat turns over a websocket. The client
// sends one request frame per turn and receives delta frames terminated by
// exactly one done or error frame.
type StreamHandler struct {
	chatService service.IChatService
	log         logger.ILogger
}

func NewStreamHandler(chatService service.IChatService, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		chatService: chatService,
		log:         log,
	}
}

func (h *StreamHandler) RegisterRoutes(r fiber.Router) {
	ws := r.Group("/chat/v1")
	ws.Use("stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("stream", websocket.New(h.serve))
}

func (h *StreamHandler) serve(conn *websocket.Conn) {
	defer conn.Close()

	emitter := newConnEmitter(conn)

	for {
		var req dto.StreamChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			// Client closed or sent a broken frame; nothing to answer to.
			return
		}

		if err := serverutils.ValidateRequest(req); err != nil {
			_ = emitter.Error("VALIDATION_ERROR", err.Error())
			continue
		}

		h.log.Info("websocket", "stream turn started", map[string]interface{}{
			"session_id": req.ChatSessionId,
		})

		if err := h.chatService.StreamChat(context.Background(), &req, emitter); err != nil {
			// Terminal error event was already emitted by the workflow.
			h.log.Warn("websocket", "stream turn failed", map[string]interface{}{
				"session_id": req.ChatSessionId,
				"error":      err.Error(),
			})
		}
	}
}
