package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsMarkup はタグが除去され、本文だけが残ることを検証する。
func TestSanitize_StripsMarkup(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "強調タグが除去される",
			input: "<strong>今日は</strong>晴れ",
			want:  "今日は晴れ",
		},
		{
			name:  "リンクはテキストだけが残る",
			input: `<a href="https://example.com">リンク</a>`,
			want:  "リンク",
		},
		{
			name:  "段落タグが除去される",
			input: "<p>段落</p>",
			want:  "段落",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_ForbiddenTags はscriptなどが中身ごと除去されることを検証する。
func TestSanitize_ForbiddenTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{
			name:       "scriptタグが除去される",
			input:      "<script>alert('xss')</script>本文",
			wantAbsent: []string{"<script", "alert"},
		},
		{
			name:       "styleタグが除去される",
			input:      "<style>body{color:red}</style>本文",
			wantAbsent: []string{"<style", "color:red"},
		},
		{
			name:       "iframeタグが除去される",
			input:      `<iframe src="https://evil.example.com"></iframe>本文`,
			wantAbsent: []string{"<iframe", "evil.example.com"},
		},
		{
			name:       "onイベント属性が除去される",
			input:      `<img src="x" onerror="alert(1)">本文`,
			wantAbsent: []string{"onerror", "alert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, absent)
				}
			}
			if !strings.Contains(got, "本文") {
				t.Errorf("Sanitize(%q) = %q, should keep text", tt.input, got)
			}
		})
	}
}

// TestSanitize_EscapedTags はエスケープされたタグも平文化の後に除去されることを検証する。
func TestSanitize_EscapedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize("&lt;b&gt;太字&lt;/b&gt;")
	if got != "太字" {
		t.Errorf("Sanitize() = %q, want %q", got, "太字")
	}
}

// TestSanitize_PlainText は記号を含む平文が変化しないことを検証する。
func TestSanitize_PlainText(t *testing.T) {
	sanitizer := NewContentSanitizer()

	for _, input := range []string{"Tom & Jerry", "a < b", `"quoted" it's`, "日本語のテキスト"} {
		if got := sanitizer.Sanitize(input); got != input {
			t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
		}
	}
}

// TestSanitize_EmptyInput は空文字列と空白のみの入力で空文字列を返すことを検証する。
func TestSanitize_EmptyInput(t *testing.T) {
	sanitizer := NewContentSanitizer()

	for _, input := range []string{"", "   ", "<p> </p>"} {
		if got := sanitizer.Sanitize(input); got != "" {
			t.Errorf("Sanitize(%q) = %q, want empty", input, got)
		}
	}
}

// TestSanitize_Idempotent は同一入力に対して同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<div><p>テスト</p><script>alert(1)</script>&amp;</div>`
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("not idempotent: first = %q, second = %q", first, second)
	}
}
