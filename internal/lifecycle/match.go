package lifecycle

import (
	"strings"

	"github.com/hitoshi/internhub/internal/model"
)

// Match は応募一覧から指定カタログエンティティへの応募を探す。
//
// 種別が一致するものの中で、まずIDで照合し、見つからなければタイトルを
// 前後空白を除いた大文字小文字無視で照合する。カタログと応募でIDが食い違う
// データを補うためのもので、一意性を保証するものではない。
func Match(apps []model.Application, kind model.Kind, targetID, targetTitle string) (*model.Application, bool) {
	if targetID != "" {
		for i := range apps {
			if apps[i].Kind == kind && apps[i].TargetID != "" && apps[i].TargetID == targetID {
				return &apps[i], true
			}
		}
	}

	title := strings.ToLower(strings.TrimSpace(targetTitle))
	if title == "" {
		return nil, false
	}
	for i := range apps {
		if apps[i].Kind != kind {
			continue
		}
		if strings.ToLower(strings.TrimSpace(apps[i].TargetTitle)) == title {
			return &apps[i], true
		}
	}
	return nil, false
}
