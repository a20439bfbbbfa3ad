// Package model はドメインモデルを定義する。
package model

import "time"

// AgeMode は年齢から導出される利用者区分を表す。
type AgeMode string

const (
	AgeModeTeen  AgeMode = "teen"
	AgeModeAdult AgeMode = "adult"
)

// adultAge はadult区分となる最小年齢。
const adultAge = 18

// AgeModeFor は年齢からAgeModeを導出する。
// 18歳未満はteen、それ以外はadultとなる。
func AgeModeFor(age int) AgeMode {
	if age < adultAge {
		return AgeModeTeen
	}
	return AgeModeAdult
}

// Theme は表示テーマの設定値を表す。
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeGray  Theme = "gray"
	ThemeAuto  Theme = "auto"
)

// ParseTheme は文字列をThemeに変換する。未知の値の場合はfalseを返す。
func ParseTheme(s string) (Theme, bool) {
	switch Theme(s) {
	case ThemeLight, ThemeDark, ThemeGray, ThemeAuto:
		return Theme(s), true
	default:
		return "", false
	}
}

// Resolve は表示時に使用するテーマを返す。
// autoはシステム設定に従ってdarkまたはlightに解決し、それ以外はそのまま返す。
func (t Theme) Resolve(systemPrefersDark bool) Theme {
	if t != ThemeAuto {
		return t
	}
	if systemPrefersDark {
		return ThemeDark
	}
	return ThemeLight
}

// User はサービス利用ユーザーを表す。
// nil許容の項目はポインタで保持する。
type User struct {
	ID              string
	Email           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string

	PhoneNumber *string
	Age         *int
	AgeMode     AgeMode

	Theme              Theme
	AgeHandlingEnabled bool
	// AgeHandlingPasscodeHash はbcryptハッシュ。平文は保持しない。
	AgeHandlingPasscodeHash *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPasscode はage handlingのパスコードが設定済みかどうかを返す。
func (u *User) HasPasscode() bool {
	return u.AgeHandlingPasscodeHash != nil && *u.AgeHandlingPasscodeHash != ""
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	Provider  string // ログインに使用したIdP
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ProfileUpdate はプロフィールの部分更新内容。nilの項目は変更しない。
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Age         *int
}

// SettingsUpdate は設定の部分更新内容。nilの項目は変更しない。
// PasscodeHashはハッシュ化済みの値のみを受け付ける。
type SettingsUpdate struct {
	Theme              *Theme
	AgeHandlingEnabled *bool
	PasscodeHash       *string
}
