package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/elec-mate/elecmate-engine/internal/assessment"
	"github.com/elec-mate/elecmate-engine/internal/generator"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

// Client is a Go SDK for the elecmate-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new elecmate-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx response
type APIError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// TemplateQuery filters the template catalog
type TemplateQuery struct {
	Search     string
	Tab        string
	Category   string
	Difficulty string
	Regulation string
	UKSpecific bool
}

// TemplateList is a filtered catalog page
type TemplateList struct {
	Templates   []*models.DocumentTemplate `json:"templates"`
	Total       int                        `json:"total"`
	Tab         string                     `json:"tab"`
	EmptyReason string                     `json:"empty_reason,omitempty"`
}

// GeneratorSession is the state of a document form
type GeneratorSession struct {
	ID         string                    `json:"id"`
	TemplateID string                    `json:"template_id"`
	Template   string                    `json:"template"`
	Fields     []generator.FieldView     `json:"fields"`
	Errors     map[string]string         `json:"errors"`
	Generating bool                      `json:"generating"`
	Completed  bool                      `json:"completed"`
	Notice     *generator.Notice         `json:"notice,omitempty"`
	Document   *models.GeneratedDocument `json:"document,omitempty"`
}

// Exam is a mock exam offered by the engine
type Exam struct {
	models.ExamDefinition
	DurationSeconds int `json:"durationSeconds"`
}

// ListOptions pages a listing
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) apply(q url.Values) {
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
}

// Health checks the liveness endpoint
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

// Templates

// ListTemplates searches the catalog
func (c *Client) ListTemplates(ctx context.Context, query TemplateQuery) (*TemplateList, error) {
	q := url.Values{}
	setIf(q, "q", query.Search)
	setIf(q, "tab", query.Tab)
	setIf(q, "category", query.Category)
	setIf(q, "difficulty", query.Difficulty)
	setIf(q, "regulation", query.Regulation)
	if query.UKSpecific {
		q.Set("uk_specific", "true")
	}

	var out TemplateList
	if err := c.call(ctx, http.MethodGet, withQuery("/api/v1/templates", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCategories returns catalog tabs with counts
func (c *Client) ListCategories(ctx context.Context) ([]models.CategorySummary, error) {
	var out struct {
		Categories []models.CategorySummary `json:"categories"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/templates/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// GetTemplate fetches one template with its fields
func (c *Client) GetTemplate(ctx context.Context, id string) (*models.DocumentTemplate, error) {
	var out models.DocumentTemplate
	if err := c.call(ctx, http.MethodGet, "/api/v1/templates/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadTemplate returns a blank PDF of a template and its file name
func (c *Client) DownloadTemplate(ctx context.Context, id string) ([]byte, string, error) {
	return c.download(ctx, "/api/v1/templates/"+url.PathEscape(id)+"/download")
}

// Generator

// CreateGeneratorSession opens a form for templateID
func (c *Client) CreateGeneratorSession(ctx context.Context, templateID string) (*GeneratorSession, error) {
	return c.generator(ctx, http.MethodPost, "/api/v1/generator/sessions", map[string]string{"template_id": templateID})
}

// GetGeneratorSession fetches a form
func (c *Client) GetGeneratorSession(ctx context.Context, id string) (*GeneratorSession, error) {
	return c.generator(ctx, http.MethodGet, generatorPath(id), nil)
}

// SetField stores one field value
func (c *Client) SetField(ctx context.Context, id, name string, value interface{}) (*GeneratorSession, error) {
	return c.generator(ctx, http.MethodPut, generatorPath(id)+"/fields/"+url.PathEscape(name), map[string]interface{}{"value": value})
}

// Generate renders the document. Validation failures come back as an
// *APIError with Fields set.
func (c *Client) Generate(ctx context.Context, id string) (*GeneratorSession, error) {
	return c.generator(ctx, http.MethodPost, generatorPath(id)+"/generate", nil)
}

// DismissNotice clears the session's toast
func (c *Client) DismissNotice(ctx context.Context, id string) (*GeneratorSession, error) {
	return c.generator(ctx, http.MethodDelete, generatorPath(id)+"/notice", nil)
}

// CloseGeneratorSession discards a form and its draft
func (c *Client) CloseGeneratorSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, generatorPath(id), nil, nil)
}

func (c *Client) generator(ctx context.Context, method, path string, body interface{}) (*GeneratorSession, error) {
	var out GeneratorSession
	if err := c.call(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func generatorPath(id string) string {
	return "/api/v1/generator/sessions/" + url.PathEscape(id)
}

// Documents

// ListDocuments lists generated documents, optionally for one template
func (c *Client) ListDocuments(ctx context.Context, templateID string, opts ListOptions) ([]*models.GeneratedDocument, error) {
	q := url.Values{}
	setIf(q, "template_id", templateID)
	opts.apply(q)

	var out struct {
		Documents []*models.GeneratedDocument `json:"documents"`
	}
	if err := c.call(ctx, http.MethodGet, withQuery("/api/v1/documents", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// GetDocument fetches a generated document's metadata
func (c *Client) GetDocument(ctx context.Context, id string) (*models.GeneratedDocument, error) {
	var out models.GeneratedDocument
	if err := c.call(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadDocument returns a generated document's bytes and file name
func (c *Client) DownloadDocument(ctx context.Context, id string) ([]byte, string, error) {
	return c.download(ctx, "/api/v1/documents/"+url.PathEscape(id)+"/file")
}

// Exams

// ListExams returns every mock exam
func (c *Client) ListExams(ctx context.Context) ([]Exam, error) {
	var out struct {
		Exams []Exam `json:"exams"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/exams", nil, &out); err != nil {
		return nil, err
	}
	return out.Exams, nil
}

// ListAttempts returns the most recent submitted sittings of an exam
func (c *Client) ListAttempts(ctx context.Context, examID string, limit int) ([]*models.ExamAttempt, error) {
	q := url.Values{}
	ListOptions{Limit: limit}.apply(q)

	var out struct {
		Attempts []*models.ExamAttempt `json:"attempts"`
	}
	if err := c.call(ctx, http.MethodGet, withQuery("/api/v1/exams/"+url.PathEscape(examID)+"/attempts", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Attempts, nil
}

// StartExam begins a timed sitting
func (c *Client) StartExam(ctx context.Context, examID string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, "/api/v1/exams/"+url.PathEscape(examID)+"/sessions", nil)
}

// GetExamSession fetches the current state of a sitting
func (c *Client) GetExamSession(ctx context.Context, id string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodGet, examPath(id), nil)
}

// Answer selects an option for the current question
func (c *Client) Answer(ctx context.Context, id string, option int) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/answer", map[string]int{"option": option})
}

// Next moves to the following question
func (c *Client) Next(ctx context.Context, id string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/next", nil)
}

// Previous moves to the preceding question
func (c *Client) Previous(ctx context.Context, id string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/previous", nil)
}

// GoTo jumps to a question
func (c *Client) GoTo(ctx context.Context, id string, index int) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/goto", map[string]int{"index": index})
}

// ToggleFlag flags or unflags the current question
func (c *Client) ToggleFlag(ctx context.Context, id string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/flag", nil)
}

// NextFlagged jumps to the next flagged question
func (c *Client) NextFlagged(ctx context.Context, id string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/next-flagged", nil)
}

// Submit hands the exam in
func (c *Client) Submit(ctx context.Context, id string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/submit", nil)
}

// Retake starts the sitting again with freshly drawn questions
func (c *Client) Retake(ctx context.Context, id string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/retake", nil)
}

// Review enters review mode. An empty filter leaves the current one in place.
func (c *Client) Review(ctx context.Context, id, filter string) (*assessment.Snapshot, error) {
	var body interface{}
	if filter != "" {
		body = map[string]string{"filter": filter}
	}
	return c.exam(ctx, http.MethodPost, examPath(id)+"/review", body)
}

// SelectReviewFilter toggles a review filter
func (c *Client) SelectReviewFilter(ctx context.Context, id, filter string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodPost, examPath(id)+"/review/filter", map[string]string{"filter": filter})
}

// ExitReview leaves review mode
func (c *Client) ExitReview(ctx context.Context, id string) (*assessment.Snapshot, error) {
	return c.exam(ctx, http.MethodDelete, examPath(id)+"/review", nil)
}

// Breakdown returns per-section and per-topic scores of a submitted sitting
func (c *Client) Breakdown(ctx context.Context, id string) (*assessment.Breakdown, error) {
	var out assessment.Breakdown
	if err := c.call(ctx, http.MethodGet, examPath(id)+"/breakdown", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DisposeExamSession stops a sitting and frees it
func (c *Client) DisposeExamSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, examPath(id), nil, nil)
}

func (c *Client) exam(ctx context.Context, method, path string, body interface{}) (*assessment.Snapshot, error) {
	var out assessment.Snapshot
	if err := c.call(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func examPath(id string) string {
	return "/api/v1/exam-sessions/" + url.PathEscape(id)
}

// Notifications

// ListNotifications lists Part P notifications
func (c *Client) ListNotifications(ctx context.Context, status string, overdue bool, opts ListOptions) ([]*models.Notification, error) {
	q := url.Values{}
	setIf(q, "status", status)
	if overdue {
		q.Set("overdue", "true")
	}
	opts.apply(q)

	var out struct {
		Notifications []*models.Notification `json:"notifications"`
	}
	if err := c.call(ctx, http.MethodGet, withQuery("/api/v1/notifications", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// CreateNotification records notifiable work
func (c *Client) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	return c.notification(ctx, http.MethodPost, "/api/v1/notifications", req)
}

// GetNotification fetches one notification
func (c *Client) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	return c.notification(ctx, http.MethodGet, "/api/v1/notifications/"+url.PathEscape(id), nil)
}

// UpdateNotification applies a partial update
func (c *Client) UpdateNotification(ctx context.Context, id string, patch models.NotificationPatch) (*models.Notification, error) {
	return c.notification(ctx, http.MethodPatch, "/api/v1/notifications/"+url.PathEscape(id), patch)
}

// DeleteNotification removes a notification
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/notifications/"+url.PathEscape(id), nil, nil)
}

func (c *Client) notification(ctx context.Context, method, path string, body interface{}) (*models.Notification, error) {
	var out models.Notification
	if err := c.call(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call sends body as JSON and decodes the envelope's data into out
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success || resp.StatusCode >= 400 {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown_error", Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}
	return nil
}

// download fetches a file endpoint
func (c *Client) download(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var result struct {
			Error *APIError `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&result) == nil && result.Error != nil {
			apiErr = result.Error
			apiErr.Status = resp.StatusCode
		}
		return nil, "", apiErr
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	var name string
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	return content, name, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
