package security

import "testing"

// TestClean はプロフィール項目からタグが除去されることをテストする。
func TestClean(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキスト", "Taro", "Taro"},
		{"アポストロフィ", "O'Brien", "O'Brien"},
		{"アンパサンド", "Tom & Jerry", "Tom & Jerry"},
		{"前後の空白", "  Hanako  ", "Hanako"},
		{"scriptタグ", "<script>alert(1)</script>Taro", "Taro"},
		{"装飾タグ", "<b>Bold</b> name", "Bold name"},
		{"イベント属性", `<img src=x onerror="alert(1)">Jiro`, "Jiro"},
		{"空文字", "", ""},
		{"日本語", "山田", "山田"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
