package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	"github.com/Karimk94/edms-archive-gateway/pkg/config"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
)

type credentialKey struct{}

// WithCredential stores the caller's session credential on the context so
// every upstream call carries it, mirroring the browser attaching the
// session cookie automatically.
func WithCredential(ctx context.Context, credential string) context.Context {
	if credential == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFrom extracts the session credential from the context.
func CredentialFrom(ctx context.Context) string {
	if v, ok := ctx.Value(credentialKey{}).(string); ok {
		return v
	}
	return ""
}

// DocumentContent streams a stored document's binary body.
type DocumentContent struct {
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// CallObserver records upstream call latency. A nil observer disables
// recording.
type CallObserver interface {
	ObserveUpstreamCall(endpoint string, duration time.Duration)
}

// Upstream is the typed client for the EDMS backend API.
type Upstream struct {
	baseURL  string
	http     *http.Client
	observer CallObserver
	logger   *zap.Logger
}

// NewUpstream builds a client for the configured backend origin. An empty
// base URL is tolerated at construction; calls fail with a fixed error.
func NewUpstream(cfg config.UpstreamConfig, observer CallObserver, logger *zap.Logger) *Upstream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upstream{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		observer: observer,
		logger:   logger,
	}
}

// SearchHREmployees queries the HR registry typeahead endpoint.
func (u *Upstream) SearchHREmployees(ctx context.Context, search string, page int) (*dto.HRSearchResponse, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("search", search)
	q.Set("page", strconv.Itoa(page))
	var out dto.HRSearchResponse
	if err := u.getJSON(ctx, "/api/hr_employees", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHRProfile fetches the canonical person record for a base identity.
func (u *Upstream) GetHRProfile(ctx context.Context, id string) (*models.HRProfile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employee id is required")
	}
	var out models.HRProfile
	if err := u.getJSON(ctx, "/api/hr_employees/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEmployees fetches one full page of the filtered dashboard collection.
func (u *Upstream) ListEmployees(ctx context.Context, filter dto.EmployeeFilter) (*dto.EmployeeListResponse, error) {
	q := url.Values{}
	q.Set("search", filter.Search)
	q.Set("status", filter.Status)
	q.Set("filter_type", filter.FilterType)
	var out dto.EmployeeListResponse
	if err := u.getJSON(ctx, "/api/employees", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEmployee hydrates an archive record including its documents.
func (u *Upstream) GetEmployee(ctx context.Context, id string) (*models.EmployeeRecord, error) {
	var out models.EmployeeRecord
	if err := u.getJSON(ctx, "/api/employees/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EmployeeCounters fetches the four dashboard summary counters.
func (u *Upstream) EmployeeCounters(ctx context.Context) (*dto.DashboardCounters, error) {
	var out dto.DashboardCounters
	if err := u.getJSON(ctx, "/api/employees/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEmployee posts a serialized archive submission (multipart).
func (u *Upstream) CreateEmployee(ctx context.Context, body io.Reader, contentType string) (*models.EmployeeRecord, error) {
	var out models.EmployeeRecord
	if err := u.sendJSON(ctx, http.MethodPost, "/api/employees", body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEmployee puts a serialized archive submission for an existing record.
func (u *Upstream) UpdateEmployee(ctx context.Context, id string, body io.Reader, contentType string) (*models.EmployeeRecord, error) {
	var out models.EmployeeRecord
	if err := u.sendJSON(ctx, http.MethodPut, "/api/employees/"+url.PathEscape(id), body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkUpload forwards a spreadsheet to the bulk-import endpoint and
// classifies the outcome: 200 success, 422 partial, anything else failure.
func (u *Upstream) BulkUpload(ctx context.Context, filename string, file io.Reader) (*dto.BulkUploadResult, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	resp, err := u.do(ctx, http.MethodPost, "/api/employees/bulk-upload", nil, pr, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result dto.BulkUploadResult
	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "malformed bulk upload response")
		}
		return &result, nil
	case http.StatusUnprocessableEntity:
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "malformed bulk upload response")
		}
		result.Partial = true
		return &result, nil
	default:
		return nil, upstreamError(resp)
	}
}

// Statuses fetches the status catalog.
func (u *Upstream) Statuses(ctx context.Context) ([]models.Status, error) {
	var out []models.Status
	if err := u.getJSON(ctx, "/api/statuses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DocumentTypes fetches the document-type catalog.
func (u *Upstream) DocumentTypes(ctx context.Context) ([]models.DocumentType, error) {
	var out []models.DocumentType
	if err := u.getJSON(ctx, "/api/document_types", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Legislations fetches the legislation catalog.
func (u *Upstream) Legislations(ctx context.Context) ([]models.Legislation, error) {
	var out []models.Legislation
	if err := u.getJSON(ctx, "/api/legislations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchDocument streams a stored document. The caller owns the body and must
// close it; canceling ctx aborts the transfer.
func (u *Upstream) FetchDocument(ctx context.Context, docNumber string) (*DocumentContent, error) {
	resp, err := u.do(ctx, http.MethodGet, "/api/document/"+url.PathEscape(docNumber), nil, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, upstreamError(resp)
	}
	return &DocumentContent{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

// Session validates the caller's credential against the backend session
// check, returning the session user or 401.
func (u *Upstream) Session(ctx context.Context) (*models.SessionUser, error) {
	var out models.SessionUser
	if err := u.getJSON(ctx, "/api/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Upstream) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	resp, err := u.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, dest)
}

func (u *Upstream) sendJSON(ctx context.Context, method, path string, body io.Reader, contentType string, dest interface{}) error {
	resp, err := u.do(ctx, method, path, nil, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, dest)
}

func (u *Upstream) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	if u.baseURL == "" {
		return nil, appErrors.Clone(appErrors.ErrInternal, "upstream not configured")
	}
	target := u.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upstream request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cred := CredentialFrom(ctx); cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	start := time.Now()
	resp, err := u.http.Do(req)
	if u.observer != nil {
		u.observer.ObserveUpstreamCall(path, time.Since(start))
	}
	if err != nil {
		// Canceled requests are artifacts of superseded operations and
		// must stay classifiable by callers.
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, context.Canceled
		}
		u.logger.Warn("upstream request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, appErrors.ErrUnavailable.Message)
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, dest interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "malformed upstream response")
	}
	return nil
}

// upstreamError surfaces the backend-provided {error} message verbatim,
// keeping the backend status code.
func upstreamError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return appErrors.ErrUnauthorized
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil || body.Error == "" {
		return appErrors.Upstream(resp.StatusCode, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
	}
	return appErrors.Upstream(resp.StatusCode, body.Error)
}
