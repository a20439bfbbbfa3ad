package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string       // エラーコード
	Message  string       // エラーメッセージ
	Category string       // カテゴリ: auth, validation, chat, system
	Action   string       // ユーザー向け対処方法
	Fields   []FieldError // 項目単位のバリデーションエラー（validationのみ）
}

// FieldError は項目単位のバリデーションエラーを表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeInvalidVault       = "INVALID_VAULT"
	ErrCodePasscodeRequired   = "PASSCODE_REQUIRED"
	ErrCodePasscodeAlreadySet = "PASSCODE_ALREADY_SET"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeUpstreamFailure    = "UPSTREAM_FAILURE"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeCSRF               = "CSRF_TOKEN_INVALID"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError は項目単位の詳細を含むバリデーションエラーを生成する。
func NewValidationError(fields []FieldError) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "Validation error",
		Category: "validation",
		Action:   "Check the highlighted fields and try again.",
		Fields:   fields,
	}
}

// NewMissingFieldsError は必須項目の欠落エラーを生成する。
func NewMissingFieldsError(fields ...string) *APIError {
	fe := make([]FieldError, len(fields))
	for i, f := range fields {
		fe[i] = FieldError{Field: f, Message: "required"}
	}
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  "Missing required fields",
		Category: "validation",
		Action:   "Provide vault, content and model.",
		Fields:   fe,
	}
}

// NewInvalidVaultError は未知のvault指定エラーを生成する。
func NewInvalidVaultError(vault string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidVault,
		Message:  fmt.Sprintf("Unknown vault: %s", vault),
		Category: "validation",
		Action:   "Use one of normal, temporary, family or friends.",
	}
}

// NewPasscodeRequiredError は初回有効化時にパスコードが無い場合のエラーを生成する。
func NewPasscodeRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodePasscodeRequired,
		Message:  "A passcode is required to enable age handling for the first time.",
		Category: "validation",
		Action:   "Set a passcode of at least 4 characters.",
		Fields:   []FieldError{{Field: "ageHandlingPasscode", Message: "required"}},
	}
}

// NewPasscodeAlreadySetError はパスコードの再設定エラーを生成する。
func NewPasscodeAlreadySetError() *APIError {
	return &APIError{
		Code:     ErrCodePasscodeAlreadySet,
		Message:  "The age handling passcode has already been set and cannot be changed.",
		Category: "validation",
		Action:   "Omit ageHandlingPasscode from the request.",
		Fields:   []FieldError{{Field: "ageHandlingPasscode", Message: "already set"}},
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewUpstreamFailureError は推論サービス呼び出しの失敗エラーを生成する。
// 下流の詳細はログのみに記録する。
func NewUpstreamFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailure,
		Message:  "Failed to create message",
		Category: "chat",
		Action:   "Wait a moment and send the message again.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Wait for the time given in Retry-After and try again.",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRF,
		Message:  "CSRF token validation failed",
		Category: "auth",
		Action:   "Fetch a new token from /api/csrf-token and retry.",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Wait a moment and try again.",
	}
}
