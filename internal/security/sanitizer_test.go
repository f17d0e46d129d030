package security

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキストはそのまま", input: "deployed on fly.io", want: "deployed on fly.io"},
		{name: "タグは除去される", input: "<b>done</b> <script>alert(1)</script>", want: "done"},
		{name: "記号はエスケープされたまま残らない", input: "Tom & Jerry's \"app\"", want: "Tom & Jerry's \"app\""},
		{name: "前後の空白は除去される", input: "  notes \n", want: "notes"},
		{name: "空文字列", input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeHTML_AllowedTags(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{name: "pタグ", input: "<p>段落</p>", wantContains: []string{"<p>段落</p>"}},
		{name: "リスト", input: "<ul><li>a</li></ul>", wantContains: []string{"<ul>", "<li>a</li>"}},
		{name: "見出し", input: "<h3>Step 1</h3>", wantContains: []string{"<h3>Step 1</h3>"}},
		{name: "コード", input: "<pre><code>go test ./...</code></pre>", wantContains: []string{"<pre><code>go test ./...</code></pre>"}},
		{
			name:         "リンクにはtargetとrelが付く",
			input:        `<a href="https://example.com">docs</a>`,
			wantContains: []string{`href="https://example.com"`, `target="_blank"`, "noopener", "noreferrer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeHTML(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("SanitizeHTML(%q) = %q, want contains %q", tt.input, got, want)
				}
			}
		})
	}
}

func TestSanitizeHTML_RemovesDangerousContent(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{name: "script", input: "<p>x</p><script>alert(1)</script>", wantAbsent: []string{"<script", "alert"}},
		{name: "iframe", input: `<iframe src="https://evil.example"></iframe>`, wantAbsent: []string{"<iframe"}},
		{name: "onイベント属性", input: `<p onclick="alert(1)">x</p>`, wantAbsent: []string{"onclick"}},
		{name: "javascriptスキーム", input: `<a href="javascript:alert(1)">x</a>`, wantAbsent: []string{"javascript:"}},
		{name: "httpスキーム", input: `<a href="http://example.com">x</a>`, wantAbsent: []string{"http://example.com"}},
		{name: "style", input: "<style>p{}</style><p>x</p>", wantAbsent: []string{"<style"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeHTML(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("SanitizeHTML(%q) = %q, must not contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

func TestSanitizeHTML_Idempotent(t *testing.T) {
	s := NewSanitizer()
	input := `<p>guide <a href="https://example.com">link</a></p><script>x</script>`
	once := s.SanitizeHTML(input)
	if twice := s.SanitizeHTML(once); once != twice {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
}
