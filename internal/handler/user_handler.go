package handler

import (
	"context"
	"math"
	"net/http"

	"github.com/relateai/relateai/internal/middleware"
	"github.com/relateai/relateai/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateProfile はプロフィールを検証して部分更新する。
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
	// GetSettings は表示・age handling設定を取得する。
	GetSettings(ctx context.Context, userID string) (*settingsView, error)
	// UpdateSettings は設定を検証して部分更新し、更新後のユーザーを返す。
	UpdateSettings(ctx context.Context, userID string, req settingsRequest) (*model.User, error)
	// VerifyPasscode はage handlingのパスコードを照合する。
	VerifyPasscode(ctx context.Context, userID, passcode string) (bool, error)
}

// UserHandler はプロフィール・設定のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// profileRequest はプロフィール更新リクエストのボディ。
// 整数以外の年齢を項目エラーとして返すため、ageは数値で受け取る。
type profileRequest struct {
	FirstName   *string  `json:"firstName"`
	LastName    *string  `json:"lastName"`
	PhoneNumber *string  `json:"phoneNumber"`
	Age         *float64 `json:"age"`
}

// settingsRequest は設定更新リクエストのボディ。
type settingsRequest struct {
	Theme               *string `json:"theme"`
	AgeHandlingEnabled  *bool   `json:"ageHandlingEnabled"`
	AgeHandlingPasscode *string `json:"ageHandlingPasscode"`
}

// settingsView はサービス層から返される設定値。
type settingsView struct {
	Theme              model.Theme
	AgeHandlingEnabled bool
	PasscodeSet        bool
}

// settingsResponse は設定のAPIレスポンス。
// resolvedThemeはクライアントヒントからautoを解決した表示用テーマ。
type settingsResponse struct {
	Theme                  string `json:"theme"`
	ResolvedTheme          string `json:"resolvedTheme"`
	AgeHandlingEnabled     bool   `json:"ageHandlingEnabled"`
	AgeHandlingPasscodeSet bool   `json:"ageHandlingPasscodeSet"`
}

type verifyPasscodeRequest struct {
	Passcode string `json:"passcode"`
}

type verifyPasscodeResponse struct {
	Valid bool `json:"valid"`
}

// UpdateProfile はプロフィールを部分更新する。
// PATCH /api/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	update := model.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	}
	if req.Age != nil {
		if *req.Age != math.Trunc(*req.Age) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError([]model.FieldError{
				{Field: "age", Message: "must be an integer"},
			}))
			return
		}
		age := int(*req.Age)
		update.Age = &age
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// GetSettings は設定を返す。
// GET /api/settings
func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	settings, err := h.service.GetSettings(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings, middleware.PrefersDarkScheme(r)))
}

// UpdateSettings は設定を部分更新し、更新後のユーザーを返す。
// PATCH /api/settings
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateSettings(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// VerifyPasscode はage handlingのパスコードを照合する。
// POST /api/settings/passcode/verify
func (h *UserHandler) VerifyPasscode(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req verifyPasscodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Passcode == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("passcode"))
		return
	}

	valid, err := h.service.VerifyPasscode(r.Context(), userID, req.Passcode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyPasscodeResponse{Valid: valid})
}

func toSettingsResponse(s *settingsView, prefersDark bool) settingsResponse {
	return settingsResponse{
		Theme:                  string(s.Theme),
		ResolvedTheme:          string(s.Theme.Resolve(prefersDark)),
		AgeHandlingEnabled:     s.AgeHandlingEnabled,
		AgeHandlingPasscodeSet: s.PasscodeSet,
	}
}
