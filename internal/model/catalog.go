// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Timeline はカタログエンティティの日程を表す。
// 日付はバックエンドが返す文字列をそのまま保持する。
type Timeline struct {
	StartDate     string `json:"startDate,omitempty"`
	MilestoneDate string `json:"milestoneDate,omitempty"`
	FinalDate     string `json:"finalDate,omitempty"`
}

// StringList はJSON配列またはカンマ/改行区切りの文字列のどちらからでも
// デコードできる文字列リスト。空要素は除去される。
type StringList []string

var listSeparator = regexp.MustCompile(`\r?\n|,`)

// ParseStringList はカンマまたは改行で区切られた文字列をリストに分割する。
func ParseStringList(s string) StringList {
	parts := listSeparator.Split(s, -1)
	out := make(StringList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// UnmarshalJSON は配列・文字列の両形式を受け付ける。
func (l *StringList) UnmarshalJSON(data []byte) error {
	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil {
		out := make(StringList, 0, len(arr))
		for _, v := range arr {
			s, ok := v.(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, s)
		}
		*l = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = ParseStringList(s)
		return nil
	}

	*l = StringList{}
	return nil
}

// Internship はインターンシップのカタログ情報を表す。
// 管理者のみが作成・編集・削除でき、応募者には読み取り専用。
type Internship struct {
	ID                  string     `json:"id,omitempty"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Duration            string     `json:"duration,omitempty"`
	Mode                string     `json:"mode,omitempty"`
	Skills              StringList `json:"skills,omitempty"`
	ImplementationGuide string     `json:"implementationGuide,omitempty"`
	Timeline            Timeline   `json:"timeline"`
}

// Project はプロジェクトのカタログ情報を表す。
type Project struct {
	ID                  string     `json:"id,omitempty"`
	Name                string     `json:"name"`
	Description         string     `json:"description,omitempty"`
	Duration            string     `json:"duration,omitempty"`
	Features            StringList `json:"features,omitempty"`
	TechStack           StringList `json:"techStack,omitempty"`
	ImplementationGuide string     `json:"implementationGuide,omitempty"`
	Timeline            Timeline   `json:"timeline"`
}
