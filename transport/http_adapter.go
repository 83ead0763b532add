package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/core"
)

const KindHTTP = "http"

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 1 << 20

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPAdapter posts delivery bodies to listener URLs. Any response is
// returned to the caller; deciding what counts as delivered is left to the
// delivery task.
type HTTPAdapter struct {
	Client               HTTPDoer
	UserAgent            string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewHTTPAdapter(client HTTPDoer) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &HTTPAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

func (*HTTPAdapter) Kind() string {
	return KindHTTP
}

func (a *HTTPAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, transportFailure(
			nil,
			goerrors.CategoryInternal,
			"transport: http adapter requires an http client",
			map[string]any{"adapter": KindHTTP},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	target := strings.TrimSpace(req.URL)
	parsedURL, err := url.Parse(target)
	if err != nil {
		return core.TransportResponse{}, transportFailure(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			map[string]any{"adapter": KindHTTP, "url": target},
		)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return core.TransportResponse{}, transportFailure(
			nil,
			goerrors.CategoryBadInput,
			"transport: absolute request url is required",
			map[string]any{"adapter": KindHTTP, "url": target},
		)
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, parsedURL.String(), bytes.NewReader(req.Body))
	if err != nil {
		return core.TransportResponse{}, transportFailure(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			map[string]any{"adapter": KindHTTP, "method": method, "url": parsedURL.String()},
		)
	}
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if ua := strings.TrimSpace(a.UserAgent); ua != "" {
		httpReq.Header.Set("User-Agent", ua)
	}
	for key, value := range a.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if key := strings.TrimSpace(req.Idempotency); key != "" {
		httpReq.Header.Set("Idempotency-Key", key)
	}

	startedAt := time.Now().UTC()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		message := "transport: execute http request"
		if errors.Is(requestCtx.Err(), context.DeadlineExceeded) {
			message = fmt.Sprintf("transport: request timed out after %s", req.Timeout)
		}
		return core.TransportResponse{}, transportFailure(
			err,
			goerrors.CategoryExternal,
			message,
			map[string]any{"adapter": KindHTTP, "method": method, "url": parsedURL.String()},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(req.MaxResponseBodyBytes, a.MaxResponseBodyBytes)
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.TransportResponse{}, transportFailure(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			map[string]any{"adapter": KindHTTP, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		Metadata: map[string]any{
			"duration_ms": time.Since(startedAt).Milliseconds(),
			"kind":        KindHTTP,
		},
	}, nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, adapterLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if adapterLimit > 0 {
		return adapterLimit
	}
	return defaultResponseBodyLimit
}

var _ core.TransportAdapter = (*HTTPAdapter)(nil)
