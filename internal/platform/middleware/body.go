package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/soluciones-gbh/demo-api/internal/platform/logging"
	"github.com/soluciones-gbh/demo-api/internal/platform/respond"
)

// DefaultBodyLimit caps parsed request bodies at 100 KiB.
const DefaultBodyLimit int64 = 100 << 10

const (
	mediaTypeForm = "application/x-www-form-urlencoded"
	mediaTypeJSON = "application/json"
)

type (
	ctxFormKey struct{}
	ctxJSONKey struct{}
)

// FormFromContext returns the flat field mapping parsed from a URL-encoded body.
func FormFromContext(ctx context.Context) (url.Values, bool) {
	v, ok := ctx.Value(ctxFormKey{}).(url.Values)
	return v, ok
}

// JSONFromContext returns the value decoded from a JSON body: a map[string]any
// for objects or a []any for arrays.
func JSONFromContext(ctx context.Context) (any, bool) {
	v, ok := ctx.Value(ctxJSONKey{}).(jsonBody)
	return v.value, ok
}

// jsonBody boxes the decoded value so a JSON null element still reports ok.
type jsonBody struct {
	value any
}

// ParseBody decodes URL-encoded and JSON request bodies up to limit bytes and
// stores the result in the request context. Requests without a body, or with
// another content type, pass through untouched. JSON bytes are replayed on
// r.Body so downstream handlers may read them again.
//
// Malformed JSON is rejected with 400 and oversized bodies with 413. Form
// bodies are decoded leniently and never rejected for their content.
func ParseBody(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) {
				next.ServeHTTP(w, r)
				return
			}
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			var ctx context.Context
			switch {
			case mediaType == mediaTypeForm:
				ctx, err = parseForm(w, r, limit)
			case mediaType == mediaTypeJSON:
				ctx, err = parseJSON(w, r, limit)
			default:
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				rejectBody(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	return r.ContentLength != 0
}

func parseForm(w http.ResponseWriter, r *http.Request, limit int64) (context.Context, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, err
	}
	values := parseQueryLenient(string(raw))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return context.WithValue(r.Context(), ctxFormKey{}, values), nil
}

// parseQueryLenient splits on '&' only and never fails: pairs with a broken
// percent escape keep the undecodable bytes as they are.
func parseQueryLenient(query string) url.Values {
	values := url.Values{}
	for pair := range strings.SplitSeq(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		values.Add(unescapeLenient(key), unescapeLenient(value))
	}
	return values
}

func unescapeLenient(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

func parseJSON(w http.ResponseWriter, r *http.Request, limit int64) (context.Context, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return context.WithValue(r.Context(), ctxJSONKey{}, jsonBody{value: map[string]any{}}), nil
	}
	// Only objects and arrays are accepted at the top level.
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: top-level value must be an object or array", errMalformedJSON)
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedJSON, err)
	}
	return context.WithValue(r.Context(), ctxJSONKey{}, jsonBody{value: value}), nil
}

var errMalformedJSON = errors.New("malformed JSON body")

func rejectBody(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respond.WriteProblem(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	if !errors.Is(err, errMalformedJSON) {
		logging.LogWarn(r.Context(), "failed to read request body", zap.Error(err))
	}
	respond.WriteProblem(w, r, http.StatusBadRequest, "request body could not be parsed",
		&huma.ErrorDetail{Message: err.Error(), Location: "body"})
}
