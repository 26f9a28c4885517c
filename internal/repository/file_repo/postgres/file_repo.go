package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docvault/internal/domain"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const selectFile = `
	SELECT id, user_id, original_name, filename, mime_type, size, s3_key, url, uploaded_at
	FROM files
`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*domain.File, error) {
	f := &domain.File{}
	err := s.Scan(
		&f.ID,
		&f.UserID,
		&f.OriginalName,
		&f.Filename,
		&f.MimeType,
		&f.Size,
		&f.S3Key,
		&f.URL,
		&f.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *FileRepository) FindByID(ctx context.Context, id, userID string) (*domain.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, selectFile+`WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file %s: %w", id, err)
	}
	return f, nil
}

func (r *FileRepository) ListByUser(ctx context.Context, userID string) ([]domain.File, error) {
	rows, err := r.db.QueryContext(ctx, selectFile+`WHERE user_id = $1 ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files for user %s: %w", userID, err)
	}
	defer rows.Close()

	files := []domain.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file rows: %w", err)
	}
	return files, nil
}

func (r *FileRepository) Create(ctx context.Context, f *domain.File) error {
	query := `
		INSERT INTO files (id, user_id, original_name, filename, mime_type, size, s3_key, url, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.UserID, f.OriginalName, f.Filename, f.MimeType, f.Size, f.S3Key, f.URL, f.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

func (r *FileRepository) Remove(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}
