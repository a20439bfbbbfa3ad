package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/relateai/relateai/internal/model"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type MessageServiceInterface interface {
	// ListMessages はvaultの会話履歴を作成順で返す。
	ListMessages(ctx context.Context, userID, vault string) ([]*model.ChatMessage, error)
	// SendMessage はユーザー発言と推論結果の応答を保存し、両方を返す。
	SendMessage(ctx context.Context, userID string, req sendMessageRequest) (*sendMessageResult, error)
	// PurgeTemporary はtemporary vaultのメッセージを全て削除する。
	PurgeTemporary(ctx context.Context, userID string) (int64, error)
}

// MessageHandler はvault単位の会話のHTTPハンドラー。
type MessageHandler struct {
	service MessageServiceInterface
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service MessageServiceInterface) *MessageHandler {
	return &MessageHandler{service: service}
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Vault   string `json:"vault"`
	Content string `json:"content"`
	Model   string `json:"model"`
}

// sendMessageResult はサービス層から返される保存済みメッセージの組。
type sendMessageResult struct {
	UserMessage      *model.ChatMessage
	AssistantMessage *model.ChatMessage
}

// messageResponse はメッセージのAPIレスポンス。
type messageResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Vault     string    `json:"vault"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     *string   `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

type sendMessageResponse struct {
	UserMessage      messageResponse `json:"userMessage"`
	AssistantMessage messageResponse `json:"assistantMessage"`
}

type statusMessageResponse struct {
	Message string `json:"message"`
}

// ListMessages はvaultの会話履歴を返す。
// GET /api/messages/{vault}
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	messages, err := h.service.ListMessages(r.Context(), userID, chi.URLParam(r, "vault"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]messageResponse, len(messages))
	for i, m := range messages {
		resp[i] = toMessageResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SendMessage はメッセージを送信し、推論サービスの応答を返す。
// POST /api/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.SendMessage(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:      toMessageResponse(result.UserMessage),
		AssistantMessage: toMessageResponse(result.AssistantMessage),
	})
}

// PurgeTemporary はtemporary vaultの会話を削除する。
// DELETE /api/messages/temporary
func (h *MessageHandler) PurgeTemporary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.PurgeTemporary(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusMessageResponse{Message: "Temporary messages deleted"})
}

func toMessageResponse(m *model.ChatMessage) messageResponse {
	var label *string
	if m.Model != "" {
		l := m.Model
		label = &l
	}
	return messageResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Vault:     string(m.Vault),
		Role:      string(m.Role),
		Content:   m.Content,
		Model:     label,
		CreatedAt: m.CreatedAt,
	}
}
