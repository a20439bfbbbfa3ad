package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/relateai/relateai/internal/middleware"
	"github.com/relateai/relateai/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, model.NewUnauthorizedError()
}

type mockUserService struct {
	updateProfileFn  func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
	getSettingsFn    func(ctx context.Context, userID string) (*settingsView, error)
	updateSettingsFn func(ctx context.Context, userID string, req settingsRequest) (*model.User, error)
	verifyPasscodeFn func(ctx context.Context, userID, passcode string) (bool, error)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, update)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserService) GetSettings(ctx context.Context, userID string) (*settingsView, error) {
	if m.getSettingsFn != nil {
		return m.getSettingsFn(ctx, userID)
	}
	return &settingsView{Theme: model.ThemeAuto}, nil
}

func (m *mockUserService) UpdateSettings(ctx context.Context, userID string, req settingsRequest) (*model.User, error) {
	if m.updateSettingsFn != nil {
		return m.updateSettingsFn(ctx, userID, req)
	}
	return &model.User{ID: userID, Theme: model.ThemeAuto, AgeMode: model.AgeModeAdult}, nil
}

func (m *mockUserService) VerifyPasscode(ctx context.Context, userID, passcode string) (bool, error) {
	if m.verifyPasscodeFn != nil {
		return m.verifyPasscodeFn(ctx, userID, passcode)
	}
	return false, nil
}

type mockMessageService struct {
	listMessagesFn   func(ctx context.Context, userID, vault string) ([]*model.ChatMessage, error)
	sendMessageFn    func(ctx context.Context, userID string, req sendMessageRequest) (*sendMessageResult, error)
	purgeTemporaryFn func(ctx context.Context, userID string) (int64, error)
}

func (m *mockMessageService) ListMessages(ctx context.Context, userID, vault string) ([]*model.ChatMessage, error) {
	if m.listMessagesFn != nil {
		return m.listMessagesFn(ctx, userID, vault)
	}
	return []*model.ChatMessage{}, nil
}

func (m *mockMessageService) SendMessage(ctx context.Context, userID string, req sendMessageRequest) (*sendMessageResult, error) {
	if m.sendMessageFn != nil {
		return m.sendMessageFn(ctx, userID, req)
	}
	return nil, nil
}

func (m *mockMessageService) PurgeTemporary(ctx context.Context, userID string) (int64, error) {
	if m.purgeTemporaryFn != nil {
		return m.purgeTemporaryFn(ctx, userID)
	}
	return 0, nil
}

// --- ヘルパー ---

func strPtr(s string) *string { return &s }


func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v\nraw: %s", err, w.Body.String())
	}
	return body
}
