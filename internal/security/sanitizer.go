// Package security はアプリケーションのセキュリティ機能を提供する。
//
// Sanitizer は利用者・管理者が入力したテキストを保存前に整える。
// 提出メモはプレーンテキストに、カタログの説明と実施ガイドは
// 許可リストベースのHTMLに制限する。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は入力テキストのサニタイズを行う。並行に使用できる。
type Sanitizer struct {
	text *bluemonday.Policy
	html *bluemonday.Policy
}

// NewSanitizer はSanitizerを生成する。
//
// HTMLポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, h3, h4
//   - aタグはhref（httpsのみ）を許可し、target="_blank"とrel="noopener noreferrer"を付与する
//   - script, iframe, styleおよびon*イベント属性は除去される
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "h3", "h4",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return u.Host != ""
	})
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &Sanitizer{
		text: bluemonday.StrictPolicy(),
		html: p,
	}
}

// SanitizeText はすべてのタグを除去したプレーンテキストを返す。
// bluemondayがエスケープした文字実体は元に戻す。
func (s *Sanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.text.Sanitize(raw)))
}

// SanitizeHTML は許可タグのみを残したHTMLを返す。
func (s *Sanitizer) SanitizeHTML(raw string) string {
	return s.html.Sanitize(raw)
}
