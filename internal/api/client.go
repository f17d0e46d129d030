// Package api はポータルのREST バックエンドへのクライアントを提供する。
//
// 認証が必要な呼び出しは Authorization: Bearer <token> を付与する。
// トークンがない場合はリクエストを送らずに ErrNotAuthenticated を返す。
// 再試行は行わない。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/internhub/internal/metrics"
	"github.com/hitoshi/internhub/internal/model"
)

// maxResponseSize はレスポンスボディの最大読み取りサイズ。
const maxResponseSize = 10 << 20

// Client はバックエンドAPIのクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewClient はClientを生成する。httpClient・mc・loggerはnilでもよい。
func NewClient(baseURL string, httpClient *http.Client, mc metrics.MetricsCollector, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		metrics:    mc,
		logger:     logger,
	}
}

// Credentials はログインの入力値。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest は利用者登録の入力値。
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult は利用者ログインの結果。NameとEmailはバックエンドが返した場合のみ設定される。
type LoginResult struct {
	Token string
	Name  string
	Email string
}

// AdminLoginResult は管理者ログインの結果。
type AdminLoginResult struct {
	Token   string
	IsAdmin bool
}

// ApplyRequest は応募の入力値。Resumeは履歴書ファイルの内容。
type ApplyRequest struct {
	TargetID    string
	TargetTitle string
	Name        string
	Email       string
	ResumeName  string
	Resume      io.Reader
}

// request は1回の呼び出しの内容。
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	token       string
	requireAuth bool
	body        io.Reader
	contentType string
}

// Register は利用者を登録し、バックエンドのメッセージを返す。
func (c *Client) Register(ctx context.Context, in RegisterRequest) (string, error) {
	body, err := c.doJSON(ctx, request{op: "register", method: http.MethodPost, path: "/auth/register"}, in)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "msg").String(), nil
}

// Login は利用者としてログインする。
func (c *Client) Login(ctx context.Context, in Credentials) (LoginResult, error) {
	body, err := c.doJSON(ctx, request{op: "login", method: http.MethodPost, path: "/auth/login"}, in)
	if err != nil {
		return LoginResult{}, err
	}
	r := gjson.ParseBytes(body)
	res := LoginResult{
		Token: firstString(r, "token", "access_token"),
		Name:  firstString(r, "name"),
		Email: firstString(r, "email"),
	}
	if res.Token == "" {
		return LoginResult{}, &Error{Op: "login", StatusCode: http.StatusOK, Message: "response has no token"}
	}
	return res, nil
}

// AdminLogin は管理者としてログインする。
// is_adminが返されない場合も、トークンが発行されていれば管理者として扱う。
func (c *Client) AdminLogin(ctx context.Context, in Credentials) (AdminLoginResult, error) {
	body, err := c.doJSON(ctx, request{op: "admin_login", method: http.MethodPost, path: "/auth/admin-login"}, in)
	if err != nil {
		return AdminLoginResult{}, err
	}
	r := gjson.ParseBytes(body)
	res := AdminLoginResult{Token: firstString(r, "token", "access_token"), IsAdmin: true}
	if v := r.Get("is_admin"); v.Exists() {
		res.IsAdmin = v.Bool()
	}
	if res.Token == "" {
		return AdminLoginResult{}, &Error{Op: "admin_login", StatusCode: http.StatusOK, Message: "response has no token"}
	}
	return res, nil
}

// ListProjects はプロジェクト一覧を取得する。
func (c *Client) ListProjects(ctx context.Context, token string) ([]model.Project, error) {
	body, err := c.do(ctx, request{op: "list_projects", method: http.MethodGet, path: "/api/projects", token: token, requireAuth: true})
	if err != nil {
		return nil, err
	}
	return decodeList(body, decodeProject), nil
}

// GetProject は指定IDのプロジェクトを取得する。
func (c *Client) GetProject(ctx context.Context, token, id string) (*model.Project, error) {
	body, err := c.do(ctx, request{op: "get_project", method: http.MethodGet, path: "/api/projects/" + url.PathEscape(id), token: token, requireAuth: true})
	if err != nil {
		return nil, err
	}
	p := decodeProject(gjson.ParseBytes(body))
	return &p, nil
}

// ListInternships はインターンシップ一覧を取得する。
// 未ログインでも閲覧できるよう、トークンは任意とする。
func (c *Client) ListInternships(ctx context.Context, token string) ([]model.Internship, error) {
	body, err := c.do(ctx, request{op: "list_internships", method: http.MethodGet, path: "/api/internships", token: token})
	if err != nil {
		return nil, err
	}
	return decodeList(body, decodeInternship), nil
}

// MyApplications はログイン中の利用者の応募一覧を取得する。各要素はtypeで種別が付く。
func (c *Client) MyApplications(ctx context.Context, token string) ([]model.Application, error) {
	body, err := c.do(ctx, request{op: "my_applications", method: http.MethodGet, path: "/api/my_applications", token: token, requireAuth: true})
	if err != nil {
		return nil, err
	}
	return decodeList(body, func(r gjson.Result) model.Application {
		return decodeApplication(r, model.KindInternship)
	}), nil
}

// ApplyInternship はインターンシップに応募し、作成された応募IDを返す。
func (c *Client) ApplyInternship(ctx context.Context, token string, in ApplyRequest) (string, error) {
	fields := [][2]string{
		{"internshipId", in.TargetID},
		{"internshipTitle", in.TargetTitle},
		{"name", in.Name},
		{"email", in.Email},
	}
	return c.apply(ctx, "apply_internship", "/api/apply_internship", token, fields, in)
}

// ApplyProject はプロジェクトに応募し、作成された応募IDを返す。
func (c *Client) ApplyProject(ctx context.Context, token string, in ApplyRequest) (string, error) {
	fields := [][2]string{
		{"projectId", in.TargetID},
		{"projectTitle", in.TargetTitle},
		{"name", in.Name},
		{"email", in.Email},
	}
	return c.apply(ctx, "apply_project", "/api/apply_project/"+url.PathEscape(in.TargetID), token, fields, in)
}

func (c *Client) apply(ctx context.Context, op, path, token string, fields [][2]string, in ApplyRequest) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("%s: failed to write form field: %w", op, err)
		}
	}
	if in.Resume != nil {
		name := in.ResumeName
		if name == "" {
			name = "resume"
		}
		fw, err := mw.CreateFormFile("resume", name)
		if err != nil {
			return "", fmt.Errorf("%s: failed to create form file: %w", op, err)
		}
		if _, err := io.Copy(fw, in.Resume); err != nil {
			return "", fmt.Errorf("%s: failed to write resume: %w", op, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%s: failed to close form: %w", op, err)
	}

	body, err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		token:       token,
		requireAuth: true,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "id").String(), nil
}

// UpdateStatus は応募の状態を変更する。
// バックエンドが変更後の状態を返した場合はそれを返し、返さない場合は空文字列を返す。
func (c *Client) UpdateStatus(ctx context.Context, token string, kind model.Kind, applicationID string, status model.ApplicationStatus) (model.ApplicationStatus, error) {
	body, err := c.doJSON(ctx, request{
		op:          "update_status",
		method:      http.MethodPut,
		path:        applicationsPath(kind) + "/" + url.PathEscape(applicationID) + "/status",
		token:       token,
		requireAuth: true,
	}, map[string]string{"status": string(status)})
	if err != nil {
		return "", err
	}
	return model.ApplicationStatus(gjson.GetBytes(body, "status").String()), nil
}

// SaveSubmission は成果物の提出内容を保存する。
func (c *Client) SaveSubmission(ctx context.Context, token string, kind model.Kind, applicationID string, s model.Submission) error {
	_, err := c.doJSON(ctx, request{
		op:          "save_submission",
		method:      http.MethodPut,
		path:        applicationsPath(kind) + "/" + url.PathEscape(applicationID) + "/submission",
		token:       token,
		requireAuth: true,
	}, map[string]string{
		"githubLink": s.GithubURL,
		"liveLink":   s.LiveURL,
		"docsLink":   s.DocsURL,
		"notes":      s.Notes,
	})
	return err
}

// CreateProject はプロジェクトを作成し、作成されたIDを返す。
func (c *Client) CreateProject(ctx context.Context, token string, p model.Project) (string, error) {
	body, err := c.doJSON(ctx, request{op: "create_project", method: http.MethodPost, path: "/api/projects", token: token, requireAuth: true}, encodeProject(p))
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "id").String(), nil
}

// UpdateProject はプロジェクトを更新する。
func (c *Client) UpdateProject(ctx context.Context, token, id string, p model.Project) error {
	_, err := c.doJSON(ctx, request{op: "update_project", method: http.MethodPut, path: "/api/projects/" + url.PathEscape(id), token: token, requireAuth: true}, encodeProject(p))
	return err
}

// DeleteProject はプロジェクトを削除する。
func (c *Client) DeleteProject(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, request{op: "delete_project", method: http.MethodDelete, path: "/api/projects/" + url.PathEscape(id), token: token, requireAuth: true})
	return err
}

// CreateInternship はインターンシップを作成し、作成されたIDを返す。
func (c *Client) CreateInternship(ctx context.Context, token string, i model.Internship) (string, error) {
	body, err := c.doJSON(ctx, request{op: "create_internship", method: http.MethodPost, path: "/api/internships", token: token, requireAuth: true}, encodeInternship(i))
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "id").String(), nil
}

// UpdateInternship はインターンシップを更新する。
func (c *Client) UpdateInternship(ctx context.Context, token, id string, i model.Internship) error {
	_, err := c.doJSON(ctx, request{op: "update_internship", method: http.MethodPut, path: "/api/internships/" + url.PathEscape(id), token: token, requireAuth: true}, encodeInternship(i))
	return err
}

// DeleteInternship はインターンシップを削除する。
func (c *Client) DeleteInternship(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, request{op: "delete_internship", method: http.MethodDelete, path: "/api/internships/" + url.PathEscape(id), token: token, requireAuth: true})
	return err
}

// ListUsers は登録済み利用者の一覧を取得する（管理者用）。
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.Applicant, error) {
	body, err := c.do(ctx, request{op: "list_users", method: http.MethodGet, path: "/api/users", token: token, requireAuth: true})
	if err != nil {
		return nil, err
	}
	return decodeList(body, decodeApplicant), nil
}

// ListInternshipApplications は全利用者のインターンシップ応募を取得する（管理者用）。
func (c *Client) ListInternshipApplications(ctx context.Context, token string) ([]model.Application, error) {
	return c.listApplications(ctx, "list_internship_applications", model.KindInternship, token)
}

// ListProjectApplications は全利用者のプロジェクト応募を取得する（管理者用）。
func (c *Client) ListProjectApplications(ctx context.Context, token string) ([]model.Application, error) {
	return c.listApplications(ctx, "list_project_applications", model.KindProject, token)
}

func (c *Client) listApplications(ctx context.Context, op string, kind model.Kind, token string) ([]model.Application, error) {
	body, err := c.do(ctx, request{
		op:          op,
		method:      http.MethodGet,
		path:        applicationsPath(kind),
		query:       url.Values{"user_id": []string{"all"}},
		token:       token,
		requireAuth: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeList(body, func(r gjson.Result) model.Application {
		a := decodeApplication(r, kind)
		a.Kind = kind
		return a
	}), nil
}

func applicationsPath(kind model.Kind) string {
	if kind == model.KindProject {
		return "/api/project_applications"
	}
	return "/api/internship_applications"
}

// doJSON はpayloadをJSONにエンコードしてリクエストする。
func (c *Client) doJSON(ctx context.Context, req request, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode request: %w", req.op, err)
	}
	req.body = bytes.NewReader(raw)
	req.contentType = "application/json"
	return c.do(ctx, req)
}

// do はリクエストを送信し、2xxであればレスポンスボディを返す。
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	if req.requireAuth && req.token == "" {
		return nil, fmt.Errorf("%s: %w", req.op, ErrNotAuthenticated)
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordUpstreamRequest(req.op, 0, time.Since(start))
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("op", req.op),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", req.op, ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.metrics.RecordUpstreamRequest(req.op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: failed to read response: %w", req.op, ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: req.op, StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
		c.logger.Warn("バックエンドAPIがエラーステータスを返しました",
			slog.String("op", req.op),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return nil, apiErr
	}
	return body, nil
}
