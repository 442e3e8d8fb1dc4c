package store

import (
	"context"
	"fmt"
	"time"
)

// 导入日志状态
const (
	ImportStatusProcessing = "processing"
	ImportStatusSuccess    = "success"
	ImportStatusFailed     = "failed"
)

// ImportLog 一次模板上传的记录
type ImportLog struct {
	ID           int64      `json:"id"`
	TemplateID   string     `json:"templateId"`
	Filename     string     `json:"filename"`
	FileSize     int64      `json:"fileSize"`
	FileHash     string     `json:"fileHash"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(ctx context.Context, filename string, fileSize int64, fileHash string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (filename, file_size, file_hash, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, filename, fileSize, fileHash, ImportStatusProcessing, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// CompleteImportLog 完成导入日志更新
func (s *Store) CompleteImportLog(ctx context.Context, id int64, templateID, status, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			template_id = ?,
			status = ?,
			error_message = ?,
			completed_at = ?
		WHERE id = ?
	`, templateID, status, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs 最近的导入日志，按时间倒序
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, filename, file_size, file_hash, status, error_message, created_at, completed_at
		FROM import_logs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query import logs failed: %w", err)
	}
	defer rows.Close()

	out := []ImportLog{}
	for rows.Next() {
		var it ImportLog
		if err := rows.Scan(&it.ID, &it.TemplateID, &it.Filename, &it.FileSize, &it.FileHash,
			&it.Status, &it.ErrorMessage, &it.CreatedAt, &it.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan import log failed: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import logs failed: %w", err)
	}
	return out, nil
}
