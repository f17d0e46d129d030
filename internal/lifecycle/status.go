// Package lifecycle は応募（Application）の状態機械を提供する。
//
// 応募者による apply / submit work と、管理者による approve / reject の
// 遷移規則、状態の表示ルール、カタログとの照合、楽観的更新とロールバックを持つ
// ローカル一覧（Board）を含む。
package lifecycle

import "github.com/hitoshi/internhub/internal/model"

// Normalize は生の状態値を正準の状態に変換する。
// 未設定・in_process・未知の値はpendingとして扱う。大文字小文字は区別する。
func Normalize(raw model.ApplicationStatus) model.ApplicationStatus {
	switch raw {
	case model.StatusSubmitted,
		model.StatusApproved,
		model.StatusResubmit,
		model.StatusRejected,
		model.StatusCompleted:
		return raw
	default:
		return model.StatusPending
	}
}

// Badge はダッシュボードに表示する状態ラベルと色。
type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"` // 色名
	Hex   string `json:"hex"`
}

var (
	badgePending   = Badge{Label: "Submitted", Color: "amber", Hex: "#FCD34D"}
	badgeSubmitted = Badge{Label: "Submitted", Color: "blue", Hex: "#60A5FA"}
	badgeApproved  = Badge{Label: "Approved", Color: "green", Hex: "#10B981"}
	badgeRejected  = Badge{Label: "Rejected", Color: "red", Hex: "#EF4444"}
	badgeCompleted = Badge{Label: "Successfully Finished", Color: "bright-green", Hex: "#34D399"}
	badgeResubmit  = Badge{Label: "Rejected - Re-submit", Color: "orange", Hex: "#F59E0B"}
)

// BadgeFor は状態に対応するダッシュボード表示を返す。
// 表示ルールは利用者に見える契約のため、変更してはならない。
func BadgeFor(raw model.ApplicationStatus) Badge {
	switch raw {
	case model.StatusSubmitted:
		return badgeSubmitted
	case model.StatusApproved:
		return badgeApproved
	case model.StatusRejected:
		return badgeRejected
	case model.StatusCompleted:
		return badgeCompleted
	case model.StatusResubmit:
		return badgeResubmit
	default:
		return badgePending
	}
}

// CardLabel はカタログ一覧のカードに表示する応募済みラベルを返す。
func CardLabel(raw model.ApplicationStatus) Badge {
	switch raw {
	case model.StatusCompleted:
		return Badge{Label: "Finished", Color: "bright-green", Hex: "#34D399"}
	case model.StatusApproved:
		return Badge{Label: "Approved", Color: "green", Hex: "#10B981"}
	case model.StatusResubmit:
		return Badge{Label: "Resubmit", Color: "orange", Hex: "#F59E0B"}
	default:
		return Badge{Label: "Applied", Color: "sky", Hex: "#5FBBFC"}
	}
}

// IsMutable は管理者がapprove/rejectを実行できる状態かを返す。
func IsMutable(raw model.ApplicationStatus) bool {
	switch Normalize(raw) {
	case model.StatusPending, model.StatusSubmitted:
		return true
	default:
		return false
	}
}

// CanSubmitWork は応募者が成果物を提出できる状態かを返す。
func CanSubmitWork(raw model.ApplicationStatus) bool {
	s := Normalize(raw)
	return s == model.StatusApproved || s == model.StatusResubmit
}

// IsTerminal は応募者が操作できない終端状態かを返す。
func IsTerminal(raw model.ApplicationStatus) bool {
	s := Normalize(raw)
	return s == model.StatusCompleted || s == model.StatusRejected
}
