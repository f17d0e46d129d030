// Package model はドメインモデルを定義する。
package model

// UserProfile はログイン中の利用者の表示用プロフィールを表す。
// Sessionとは独立したキーで永続化され、updateProfileで部分更新される。
type UserProfile struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// ProfilePatch はUserProfileへの浅いマージ内容を表す。
// nilのフィールドは変更しない。
type ProfilePatch struct {
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

// Session はブラウザプロファイルごとの認証状態を表す。
// トークンは不透明な文字列として扱い、内容は検証しない。
type Session struct {
	Token   string
	IsAdmin bool
}

// Applicant は管理画面のユーザー一覧に表示される応募者を表す。
type Applicant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
