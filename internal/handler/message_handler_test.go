package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/relateai/relateai/internal/model"
)

// routeWithVault はchiのURLパラメータを設定したリクエストを返す。
func routeWithVault(req *http.Request, vault string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("vault", vault)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestMessageHandler_ListMessages(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &mockMessageService{
		listMessagesFn: func(ctx context.Context, userID, vault string) ([]*model.ChatMessage, error) {
			if userID != "user-1" || vault != "normal" {
				t.Errorf("ListMessages(%q, %q)", userID, vault)
			}
			return []*model.ChatMessage{
				{ID: "m1", UserID: userID, Vault: model.VaultNormal, Role: model.RoleUser, Content: "hi", Model: "normal_adult", CreatedAt: now},
				{ID: "m2", UserID: userID, Vault: model.VaultNormal, Role: model.RoleAssistant, Content: "hello", CreatedAt: now},
			}, nil
		},
	}
	h := NewMessageHandler(svc)

	w := httptest.NewRecorder()
	h.ListMessages(w, routeWithVault(authedRequest(http.MethodGet, "/api/messages/normal", ""), "normal"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 2 || body[0]["id"] != "m1" || body[1]["id"] != "m2" {
		t.Fatalf("body = %v", body)
	}
	if body[0]["model"] != "normal_adult" || body[0]["userId"] != "user-1" || body[0]["createdAt"] == nil {
		t.Errorf("unexpected first message: %v", body[0])
	}
	if body[1]["model"] != nil {
		t.Errorf("empty model should be null, got %v", body[1]["model"])
	}
}

// 該当なしの場合はnullではなく空配列を返す。
func TestMessageHandler_ListMessages_EmptyArray(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	w := httptest.NewRecorder()
	h.ListMessages(w, routeWithVault(authedRequest(http.MethodGet, "/api/messages/family", ""), "family"))

	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestMessageHandler_ListMessages_InvalidVault(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{
		listMessagesFn: func(ctx context.Context, userID, vault string) ([]*model.ChatMessage, error) {
			return nil, model.NewInvalidVaultError(vault)
		},
	})

	w := httptest.NewRecorder()
	h.ListMessages(w, routeWithVault(authedRequest(http.MethodGet, "/api/messages/work", ""), "work"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeInvalidVault {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidVault)
	}
}

func TestMessageHandler_SendMessage(t *testing.T) {
	var got sendMessageRequest
	h := NewMessageHandler(&mockMessageService{
		sendMessageFn: func(ctx context.Context, userID string, req sendMessageRequest) (*sendMessageResult, error) {
			got = req
			return &sendMessageResult{
				UserMessage:      &model.ChatMessage{ID: "u", UserID: userID, Vault: model.VaultTemporary, Role: model.RoleUser, Content: req.Content, Model: req.Model},
				AssistantMessage: &model.ChatMessage{ID: "a", UserID: userID, Vault: model.VaultTemporary, Role: model.RoleAssistant, Content: "reply", Model: req.Model},
			}, nil
		},
	})

	w := httptest.NewRecorder()
	h.SendMessage(w, authedRequest(http.MethodPost, "/api/messages",
		`{"vault":"temporary","content":"hey","model":"temp_teen"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != (sendMessageRequest{Vault: "temporary", Content: "hey", Model: "temp_teen"}) {
		t.Errorf("request = %+v", got)
	}

	var body struct {
		UserMessage      messageResponse `json:"userMessage"`
		AssistantMessage messageResponse `json:"assistantMessage"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserMessage.Role != "user" || body.AssistantMessage.Role != "assistant" {
		t.Errorf("roles = %q, %q", body.UserMessage.Role, body.AssistantMessage.Role)
	}
	if body.AssistantMessage.Content != "reply" || *body.AssistantMessage.Model != "temp_teen" {
		t.Errorf("assistant = %+v", body.AssistantMessage)
	}
}

func TestMessageHandler_SendMessage_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"必須項目の欠落", model.NewMissingFieldsError("content"), http.StatusBadRequest, model.ErrCodeMissingFields},
		{"推論サービスの失敗", model.NewUpstreamFailureError(), http.StatusBadGateway, model.ErrCodeUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMessageHandler(&mockMessageService{
				sendMessageFn: func(ctx context.Context, userID string, req sendMessageRequest) (*sendMessageResult, error) {
					return nil, tt.err
				},
			})

			w := httptest.NewRecorder()
			h.SendMessage(w, authedRequest(http.MethodPost, "/api/messages", `{"vault":"normal"}`))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := decodeError(t, w); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestMessageHandler_PurgeTemporary(t *testing.T) {
	called := false
	h := NewMessageHandler(&mockMessageService{
		purgeTemporaryFn: func(ctx context.Context, userID string) (int64, error) {
			called = true
			return 3, nil
		},
	})

	w := httptest.NewRecorder()
	h.PurgeTemporary(w, authedRequest(http.MethodDelete, "/api/messages/temporary", ""))

	if !called {
		t.Fatal("PurgeTemporary was not called")
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "Temporary messages deleted" {
		t.Errorf("message = %q", body["message"])
	}
}
