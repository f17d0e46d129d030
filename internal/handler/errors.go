package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/middleware"
	"github.com/hitoshi/internhub/internal/model"
	"github.com/hitoshi/internhub/internal/portal"
)

// maxJSONBody はJSONリクエストボディの上限（1MB）。
const maxJSONBody = 1 << 20

// handleServiceError は画面処理やAPIクライアントから返されたエラーを
// HTTPステータスコードとAPIErrorに変換して書き込む。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	switch {
	case errors.Is(err, api.ErrNotAuthenticated):
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
	case errors.Is(err, portal.ErrInvalidInput):
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
	case errors.Is(err, portal.ErrNotFound):
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeCatalogNotFound,
			Message:  err.Error(),
			Category: "catalog",
			Action:   "Go back to the dashboard and pick another entry.",
		})
	case errors.Is(err, lifecycle.ErrAlreadyApplied):
		middleware.WriteErrorResponse(w, http.StatusConflict, &model.APIError{
			Code:     model.ErrCodeAlreadyApplied,
			Message:  "You have already applied.",
			Category: "application",
			Action:   "Check the status on your dashboard.",
		})
	case errors.Is(err, lifecycle.ErrApplicationNotFound):
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewApplicationNotFoundError(chi.URLParam(r, "applicationID")))
	case errors.Is(err, lifecycle.ErrSubmissionLinkRequired):
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewSubmissionLinkRequiredError())
	case errors.Is(err, lifecycle.ErrSubmissionNotAllowed):
		middleware.WriteErrorResponse(w, http.StatusConflict, &model.APIError{
			Code:     model.ErrCodeSubmissionNotAllowed,
			Message:  err.Error(),
			Category: "application",
			Action:   "Wait for the application to be approved.",
		})
	case errors.Is(err, lifecycle.ErrTransitionNotAllowed):
		middleware.WriteErrorResponse(w, http.StatusConflict, &model.APIError{
			Code:     model.ErrCodeTransitionNotAllowed,
			Message:  err.Error(),
			Category: "application",
			Action:   "Reload the dashboard to see the current status.",
		})
	default:
		handleUpstreamError(w, r, err)
	}
}

// handleUpstreamError はバックエンド起因のエラーを変換する。
// バックエンドの401はセッション切れとして扱い、それ以外は502を返す。
func handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *api.Error
	switch {
	case errors.As(err, &upstream):
		if upstream.StatusCode == http.StatusUnauthorized {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
			return
		}
		if upstream.StatusCode == http.StatusNotFound {
			middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
				Code:     model.ErrCodeCatalogNotFound,
				Message:  upstream.Message,
				Category: "catalog",
				Action:   "Go back to the dashboard and pick another entry.",
			})
			return
		}
		slog.WarnContext(r.Context(), "バックエンドがエラーを返しました",
			slog.String("op", upstream.Op),
			slog.Int("status", upstream.StatusCode),
			slog.String("message", upstream.Message),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailedError(upstream.Message))
	case errors.Is(err, api.ErrTransport):
		slog.WarnContext(r.Context(), "バックエンドとの通信に失敗しました", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailedError("The backend could not be reached."))
	default:
		slog.ErrorContext(r.Context(), "internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeCSRFInvalid:
		return http.StatusForbidden
	case model.ErrCodeInvalidRequest, model.ErrCodeSubmissionLinkRequired:
		return http.StatusBadRequest
	case model.ErrCodeApplicationNotFound, model.ErrCodeCatalogNotFound:
		return http.StatusNotFound
	case model.ErrCodeAlreadyApplied, model.ErrCodeSubmissionNotAllowed, model.ErrCodeTransitionNotAllowed:
		return http.StatusConflict
	case model.ErrCodeUpstreamFailed:
		return http.StatusBadGateway
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをvにデコードする。失敗時は400を書き込んでfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("malformed JSON body"))
		return false
	}
	return true
}
