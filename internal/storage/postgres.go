package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elec-mate/elecmate-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 25
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	poolConfig.MinConns = 5
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Generated documents ---

// CreateDocument stores a rendered document and its source form data
func (r *PostgresRepository) CreateDocument(ctx context.Context, doc *models.GeneratedDocument) error {
	dataJSON, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal form data: %w", err)
	}

	query := `
		INSERT INTO generated_documents (id, template_id, file_name, mime_type, size, data, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		doc.ID,
		doc.TemplateID,
		doc.FileName,
		doc.MimeType,
		doc.Size,
		dataJSON,
		doc.Content,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// GetDocument retrieves a document including its content
func (r *PostgresRepository) GetDocument(ctx context.Context, id string) (*models.GeneratedDocument, error) {
	query := `
		SELECT id, template_id, file_name, mime_type, size, data, content, created_at
		FROM generated_documents
		WHERE id = $1
	`

	var doc models.GeneratedDocument
	var dataJSON []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.TemplateID,
		&doc.FileName,
		&doc.MimeType,
		&doc.Size,
		&dataJSON,
		&doc.Content,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if err := json.Unmarshal(dataJSON, &doc.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal form data: %w", err)
	}

	return &doc, nil
}

// ListDocuments returns document metadata, newest first, without content
func (r *PostgresRepository) ListDocuments(ctx context.Context, filters models.DocumentFilters) ([]*models.GeneratedDocument, error) {
	query := `
		SELECT id, template_id, file_name, mime_type, size, created_at
		FROM generated_documents
		WHERE 1=1
	`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.TemplateID != "" {
		query += fmt.Sprintf(" AND template_id = $%d", argNum)
		args = append(args, filters.TemplateID)
		argNum++
	}

	query += " ORDER BY created_at DESC"
	query, args = paginate(query, args, argNum, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.GeneratedDocument
	for rows.Next() {
		var doc models.GeneratedDocument
		if err := rows.Scan(&doc.ID, &doc.TemplateID, &doc.FileName, &doc.MimeType, &doc.Size, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// --- Notifications ---

const notificationColumns = `id, job_reference, property_address, postcode, work_type, completion_date,
	submission_deadline, status, building_control_body, certificate_number, notes, submitted_at,
	created_at, updated_at`

// CreateNotification inserts a notification
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		n.ID,
		n.JobReference,
		n.PropertyAddress,
		n.Postcode,
		n.WorkType,
		n.CompletionDate,
		n.SubmissionDeadline,
		string(n.Status),
		nullString(n.BuildingControlBody),
		nullString(n.CertificateNumber),
		nullString(n.Notes),
		nullTime(n.SubmittedAt),
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetNotification retrieves a notification by ID
func (r *PostgresRepository) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// UpdateNotification writes every mutable column
func (r *PostgresRepository) UpdateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		UPDATE notifications
		SET job_reference = $2, property_address = $3, postcode = $4, work_type = $5,
		    completion_date = $6, submission_deadline = $7, status = $8,
		    building_control_body = $9, certificate_number = $10, notes = $11,
		    submitted_at = $12, updated_at = $13
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		n.ID,
		n.JobReference,
		n.PropertyAddress,
		n.Postcode,
		n.WorkType,
		n.CompletionDate,
		n.SubmissionDeadline,
		string(n.Status),
		nullString(n.BuildingControlBody),
		nullString(n.CertificateNumber),
		nullString(n.Notes),
		nullTime(n.SubmittedAt),
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteNotification removes a notification
func (r *PostgresRepository) DeleteNotification(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNotifications returns notifications ordered by deadline
func (r *PostgresRepository) ListNotifications(ctx context.Context, filters models.NotificationFilters) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filters.Status))
		argNum++
	}

	if filters.Overdue {
		query += " AND submission_deadline < CURRENT_DATE AND status NOT IN ('submitted', 'approved')"
	}

	query += " ORDER BY submission_deadline ASC, created_at ASC"
	query, args = paginate(query, args, argNum, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return out, nil
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	var status string
	var body, certificate, notes sql.NullString
	var submittedAt sql.NullTime

	err := row.Scan(
		&n.ID,
		&n.JobReference,
		&n.PropertyAddress,
		&n.Postcode,
		&n.WorkType,
		&n.CompletionDate,
		&n.SubmissionDeadline,
		&status,
		&body,
		&certificate,
		&notes,
		&submittedAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Status = models.NotificationStatus(status)
	n.BuildingControlBody = body.String
	n.CertificateNumber = certificate.String
	n.Notes = notes.String
	if submittedAt.Valid {
		n.SubmittedAt = &submittedAt.Time
	}
	return &n, nil
}

// --- Exam attempts ---

// SaveAttempt records a completed exam sitting
func (r *PostgresRepository) SaveAttempt(ctx context.Context, a *models.ExamAttempt) error {
	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	idsJSON, err := json.Marshal(a.QuestionIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal question ids: %w", err)
	}

	query := `
		INSERT INTO exam_attempts (id, exam_id, session_id, correct, total, percentage, passed, answered,
			flagged, timed_out, answers, question_ids, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.pool.Exec(ctx, query,
		a.ID,
		a.ExamID,
		a.SessionID,
		a.Correct,
		a.Total,
		a.Percentage,
		a.Passed,
		a.Answered,
		a.Flagged,
		a.TimedOut,
		answersJSON,
		idsJSON,
		a.StartedAt,
		a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save exam attempt: %w", err)
	}

	return nil
}

// ListAttempts returns the most recent attempts for an exam
func (r *PostgresRepository) ListAttempts(ctx context.Context, examID string, limit int) ([]*models.ExamAttempt, error) {
	query := `
		SELECT id, exam_id, session_id, correct, total, percentage, passed, answered, flagged,
			timed_out, answers, question_ids, started_at, completed_at
		FROM exam_attempts
		WHERE exam_id = $1
		ORDER BY completed_at DESC
	`
	args := []interface{}{examID}
	query, args = paginate(query, args, 2, limit, 0)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.ExamAttempt
	for rows.Next() {
		var a models.ExamAttempt
		var answersJSON, idsJSON []byte

		err := rows.Scan(
			&a.ID,
			&a.ExamID,
			&a.SessionID,
			&a.Correct,
			&a.Total,
			&a.Percentage,
			&a.Passed,
			&a.Answered,
			&a.Flagged,
			&a.TimedOut,
			&answersJSON,
			&idsJSON,
			&a.StartedAt,
			&a.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exam attempt: %w", err)
		}

		if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
		if err := json.Unmarshal(idsJSON, &a.QuestionIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal question ids: %w", err)
		}

		attempts = append(attempts, &a)
	}

	return attempts, rows.Err()
}

// --- API clients ---

// GetClientByApiKey retrieves an API client by its key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsedAt sql.NullTime
	var permissionsJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&permissionsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}

	if permissionsJSON != nil {
		if err := json.Unmarshal(permissionsJSON, &client.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	query := `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`

	if _, err := r.pool.Exec(ctx, query, apiKey); err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}

	return nil
}

// --- helpers ---

func paginate(query string, args []interface{}, argNum, limit, offset int) (string, []interface{}) {
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, limit)
		argNum++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, offset)
	}
	return query, args
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
