package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hitoshi/internhub/internal/model"
)

// DefaultEmailDomain はメールアドレスが与えられなかった場合に補うドメイン。
const DefaultEmailDomain = "gmail.com"

var nameSeparators = strings.NewReplacer(".", " ", "_", " ")

// DeriveProfile はログイン入力から表示用プロフィールを組み立てる。
//
//   - nameが空ならメールアドレスの@より前を名前にする
//   - emailが空なら name@domain を補う
//   - 名前がメールアドレスの@より前と一致する場合は、先頭を大文字にし
//     残りの . と _ を空白に置き換える（jane.doe → Jane doe）
func DeriveProfile(name, email, domain string) model.UserProfile {
	if domain == "" {
		domain = DefaultEmailDomain
	}

	prefix := emailPrefix(email)

	p := model.UserProfile{Name: name, Email: email}
	if p.Name == "" {
		p.Name = prefix
	}
	if p.Email == "" && name != "" {
		p.Email = name + "@" + domain
	}

	if p.Name != "" && email != "" && p.Name == prefix && strings.Contains(email, "@") {
		p.Name = humanizePrefix(p.Name)
	}
	return p
}

func emailPrefix(email string) string {
	if email == "" {
		return ""
	}
	prefix, _, _ := strings.Cut(email, "@")
	return prefix
}

func humanizePrefix(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + nameSeparators.Replace(s[size:])
}

// MergeProfile はpatchの非nilフィールドだけを上書きした新しいプロフィールを返す。
// baseがnilの場合は空のプロフィールに適用する。
func MergeProfile(base *model.UserProfile, patch model.ProfilePatch) *model.UserProfile {
	var out model.UserProfile
	if base != nil {
		out = *base
	}
	if patch.Name != nil {
		out.Name = *patch.Name
	}
	if patch.Email != nil {
		out.Email = *patch.Email
	}
	if patch.ProfilePicture != nil {
		out.ProfilePicture = *patch.ProfilePicture
	}
	return &out
}
