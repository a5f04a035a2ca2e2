package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/patronlabs/patron-gateway/pkg/apperr"
	xhttp "github.com/patronlabs/patron-gateway/pkg/http"
	"github.com/patronlabs/patron-gateway/pkg/logger"
)

// pageResponse is the envelope for every paginated listing.
type pageResponse struct {
	Items      any   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError maps an error kind to its HTTP status. Internal causes
// are logged here and never leak into the body.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	status := statusOf(apperr.KindOf(err))
	if status == 500 {
		logger.Error("request failed", "path", string(ctx.Path()), "error", err)
	}
	writeError(ctx, status, apperr.MessageOf(err))
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return 400
	case apperr.KindAuthorization:
		return 403
	case apperr.KindNotFound:
		return 404
	case apperr.KindConflict:
		return 409
	default:
		return 500
	}
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

// queryInt returns fallback only for an absent parameter. A present but
// unparseable value comes back as -1 so paging validation rejects it the
// same way an out-of-range value is rejected.
func queryInt(ctx *xhttp.RequestCtx, key string, fallback int) int {
	v := query(ctx, key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func pathString(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	return strconv.ParseInt(pathString(ctx, name), 10, 64)
}
