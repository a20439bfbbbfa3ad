package model

import "testing"

// 年齢の境界値でAgeModeが切り替わること
func TestAgeModeFor(t *testing.T) {
	tests := []struct {
		age  int
		want AgeMode
	}{
		{13, AgeModeTeen},
		{17, AgeModeTeen},
		{18, AgeModeAdult},
		{45, AgeModeAdult},
		{120, AgeModeAdult},
	}
	for _, tt := range tests {
		if got := AgeModeFor(tt.age); got != tt.want {
			t.Errorf("AgeModeFor(%d) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestModelLabelFor(t *testing.T) {
	tests := []struct {
		mode  AgeMode
		vault Vault
		want  ModelLabel
	}{
		{AgeModeTeen, VaultNormal, ModelNormalTeen},
		{AgeModeTeen, VaultFamily, ModelNormalTeen},
		{AgeModeTeen, VaultTemporary, ModelTempTeen},
		{AgeModeAdult, VaultFriends, ModelNormalAdult},
		{AgeModeAdult, VaultTemporary, ModelTempAdult},
		{"", VaultNormal, ModelNormalAdult},
	}
	for _, tt := range tests {
		if got := ModelLabelFor(tt.mode, tt.vault); got != tt.want {
			t.Errorf("ModelLabelFor(%q, %q) = %q, want %q", tt.mode, tt.vault, got, tt.want)
		}
	}
}

func TestParseVault(t *testing.T) {
	for _, s := range []string{"normal", "temporary", "family", "friends"} {
		if v, ok := ParseVault(s); !ok || string(v) != s {
			t.Errorf("ParseVault(%q) = %q, %v", s, v, ok)
		}
	}
	for _, s := range []string{"", "work", "Normal", "temp"} {
		if _, ok := ParseVault(s); ok {
			t.Errorf("ParseVault(%q) should fail", s)
		}
	}
}

func TestParseTheme(t *testing.T) {
	for _, s := range []string{"light", "dark", "gray", "auto"} {
		if th, ok := ParseTheme(s); !ok || string(th) != s {
			t.Errorf("ParseTheme(%q) = %q, %v", s, th, ok)
		}
	}
	if _, ok := ParseTheme("purple"); ok {
		t.Error("ParseTheme(purple) should fail")
	}
}

// autoのみがシステム設定に従って解決されること
func TestTheme_Resolve(t *testing.T) {
	if got := ThemeAuto.Resolve(true); got != ThemeDark {
		t.Errorf("auto/dark = %q", got)
	}
	if got := ThemeAuto.Resolve(false); got != ThemeLight {
		t.Errorf("auto/light = %q", got)
	}
	if got := ThemeGray.Resolve(true); got != ThemeGray {
		t.Errorf("gray = %q", got)
	}
	if got := ThemeLight.Resolve(true); got != ThemeLight {
		t.Errorf("light = %q", got)
	}
}

func TestUser_HasPasscode(t *testing.T) {
	empty := ""
	hash := "$2a$10$hash"
	tests := []struct {
		name string
		hash *string
		want bool
	}{
		{"nil", nil, false},
		{"空文字", &empty, false},
		{"設定済み", &hash, true},
	}
	for _, tt := range tests {
		u := &User{AgeHandlingPasscodeHash: tt.hash}
		if got := u.HasPasscode(); got != tt.want {
			t.Errorf("%s: HasPasscode() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewMissingFieldsError(t *testing.T) {
	err := NewMissingFieldsError("content", "vault")
	if err.Code != ErrCodeMissingFields {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeMissingFields)
	}
	if len(err.Fields) != 2 || err.Fields[0].Field != "content" {
		t.Errorf("Fields = %+v", err.Fields)
	}
	if err.Error() == "" {
		t.Error("Error() should not be empty")
	}
}
