package api

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/internhub/internal/model"
)

// firstString は候補のパスを順に探し、最初に見つかった空でない値を返す。
// 数値のIDも文字列として扱う。
func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := r.Get(p)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

// stringList は配列または区切り文字列をリストにする。
func stringList(r gjson.Result, paths ...string) model.StringList {
	for _, p := range paths {
		v := r.Get(p)
		switch {
		case v.IsArray():
			out := make(model.StringList, 0)
			for _, item := range v.Array() {
				if s := strings.TrimSpace(item.String()); s != "" && item.Type == gjson.String {
					out = append(out, item.Str)
				}
			}
			return out
		case v.Type == gjson.String:
			return model.ParseStringList(v.Str)
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime はISO 8601形式の日時を解釈する。解釈できない場合はnilを返す。
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func decodeTimeline(r gjson.Result) model.Timeline {
	return model.Timeline{
		StartDate:     firstString(r, "timeline.start", "timeline.startDate", "timeline_start", "startDate"),
		MilestoneDate: firstString(r, "timeline.milestone", "timeline.milestoneDate", "timeline_milestone", "milestoneDate"),
		FinalDate:     firstString(r, "timeline.final", "timeline.finalDate", "timeline_final", "finalDate"),
	}
}

func decodeInternship(r gjson.Result) model.Internship {
	return model.Internship{
		ID:                  firstString(r, "id", "_id"),
		Title:               firstString(r, "title", "name"),
		Description:         firstString(r, "description"),
		Duration:            firstString(r, "duration"),
		Mode:                firstString(r, "mode"),
		Skills:              stringList(r, "skills"),
		ImplementationGuide: firstString(r, "how_to_do", "implementationGuide", "implementation_guide"),
		Timeline:            decodeTimeline(r),
	}
}

func decodeProject(r gjson.Result) model.Project {
	return model.Project{
		ID:                  firstString(r, "id", "_id"),
		Name:                firstString(r, "name", "title"),
		Description:         firstString(r, "description"),
		Duration:            firstString(r, "duration"),
		Features:            stringList(r, "features"),
		TechStack:           stringList(r, "tech_stack", "techStack"),
		ImplementationGuide: firstString(r, "how_to_do", "implementationGuide", "implementation_guide"),
		Timeline:            decodeTimeline(r),
	}
}

func decodeSubmission(r gjson.Result) *model.Submission {
	if !r.IsObject() {
		return nil
	}
	s := &model.Submission{
		GithubURL:   firstString(r, "github_url", "githubUrl", "githubLink"),
		LiveURL:     firstString(r, "live_url", "liveUrl", "liveLink"),
		DocsURL:     firstString(r, "docs_url", "docsUrl", "docsLink"),
		Notes:       firstString(r, "notes"),
		SubmittedAt: parseTime(firstString(r, "submitted_at", "submittedAt")),
	}
	if s.Empty() {
		return nil
	}
	return s
}

// decodeApplication は応募レコードを解釈する。
// 種別がレコードに含まれない場合はfallbackKindを使う。
func decodeApplication(r gjson.Result, fallbackKind model.Kind) model.Application {
	kind := model.Kind(firstString(r, "type"))
	if !kind.Valid() {
		kind = fallbackKind
	}

	var targetID, targetTitle string
	if kind == model.KindProject {
		targetID = firstString(r, "projectId", "project_id", "project._id", "project.id")
		targetTitle = firstString(r, "projectTitle", "project_name", "projectName", "project.name", "project.title")
	} else {
		targetID = firstString(r, "internshipId", "internship_id", "internship._id", "internship.id")
		targetTitle = firstString(r, "internshipTitle", "internship_title", "internship.title")
	}

	return model.Application{
		ID:             firstString(r, "id", "_id"),
		Kind:           kind,
		TargetID:       targetID,
		TargetTitle:    targetTitle,
		ApplicantName:  firstString(r, "applicant", "name"),
		ApplicantEmail: firstString(r, "email"),
		ResumeRef:      firstString(r, "resumeName", "resume", "resume_name"),
		Status:         model.ApplicationStatus(firstString(r, "status")),
		Submission:     decodeSubmission(r.Get("submission")),
		AppliedAt:      parseTime(firstString(r, "date", "created_at", "appliedAt")),
	}
}

func decodeApplicant(r gjson.Result) model.Applicant {
	return model.Applicant{
		ID:    firstString(r, "id", "_id"),
		Name:  firstString(r, "name"),
		Email: firstString(r, "email"),
	}
}

// decodeList はJSON配列の各要素をdecodeで変換する。配列でなければ空を返す。
func decodeList[T any](body []byte, decode func(gjson.Result) T) []T {
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return []T{}
	}
	items := root.Array()
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, decode(item))
	}
	return out
}

// encodeProject はバックエンドの保存形式に変換する。
func encodeProject(p model.Project) map[string]any {
	m := map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"duration":    p.Duration,
		"features":    nonNil(p.Features),
		"tech_stack":  nonNil(p.TechStack),
		"how_to_do":   p.ImplementationGuide,
		"timeline":    encodeTimeline(p.Timeline),
	}
	if p.ID != "" {
		m["id"] = p.ID
	}
	return m
}

// encodeInternship はバックエンドの保存形式に変換する。
func encodeInternship(i model.Internship) map[string]any {
	m := map[string]any{
		"title":       i.Title,
		"description": i.Description,
		"duration":    i.Duration,
		"mode":        i.Mode,
		"skills":      nonNil(i.Skills),
		"how_to_do":   i.ImplementationGuide,
		"timeline":    encodeTimeline(i.Timeline),
	}
	if i.ID != "" {
		m["id"] = i.ID
	}
	return m
}

func encodeTimeline(t model.Timeline) map[string]string {
	return map[string]string{
		"start":     t.StartDate,
		"milestone": t.MilestoneDate,
		"final":     t.FinalDate,
	}
}

func nonNil(l model.StringList) []string {
	if l == nil {
		return []string{}
	}
	return l
}
