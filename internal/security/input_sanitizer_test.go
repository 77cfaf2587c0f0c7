package security

import "testing"

func TestSanitizeText(t *testing.T) {
	sanitizer := NewInputSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Jekyll", "Jekyll"},
		{"前後の空白を除去", "  Henry Jekyll \n", "Henry Jekyll"},
		{"タグを除去", "<b>Jekyll</b>", "Jekyll"},
		{"scriptタグは中身ごと除去", "Hyde<script>alert(1)</script>", "Hyde"},
		{"イベント属性付きタグを除去", `<img src=x onerror="alert(1)">Hyde`, "Hyde"},
		{"アンパサンドは保持", "Jekyll & Hyde", "Jekyll & Hyde"},
		{"制御文字を除去", "Jek\x00yll\x07", "Jekyll"},
		{"日本語はそのまま", "ジキル博士", "ジキル博士"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitizeText_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitizeText_Idempotent(t *testing.T) {
	sanitizer := NewInputSanitizer()

	inputs := []string{
		"<p>Jekyll</p> & Hyde",
		"plain",
		"&lt;b&gt;escaped&lt;/b&gt;",
	}
	for _, input := range inputs {
		first := sanitizer.SanitizeText(input)
		if second := sanitizer.SanitizeText(input); first != second {
			t.Errorf("not deterministic for %q: %q vs %q", input, first, second)
		}
	}
}
