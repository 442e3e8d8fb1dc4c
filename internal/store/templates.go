package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skuforge/internal/model"
)

const templateResource = "template"

// CreateTemplate 写入新模板；映射、版式与原始二进制合并为一个映射文档
func (s *Store) CreateTemplate(ctx context.Context, t *model.Template) error {
	headers, mappings, err := encodeTemplate(t)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, owner, name, marketplace, category_id, headers_json, mappings_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Owner, t.Name, t.Marketplace, t.CategoryID, headers, mappings, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

// ReplaceTemplate 重新上传：除 id / owner / created_at 外整体替换
func (s *Store) ReplaceTemplate(ctx context.Context, t *model.Template) error {
	headers, mappings, err := encodeTemplate(t)
	if err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE templates SET
			name = ?, marketplace = ?, category_id = ?,
			headers_json = ?, mappings_json = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.Marketplace, t.CategoryID, headers, mappings, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("failed to replace template: %w", err)
	}
	return requireAffected(res, templateResource, t.ID)
}

// UpdateTemplateMappings 合并列映射编辑；版式与二进制保持不变
func (s *Store) UpdateTemplateMappings(ctx context.Context, id string, edits map[int]model.FieldMapping) (*model.Template, error) {
	var out *model.Template
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := scanTemplate(tx.QueryRowContext(ctx, selectTemplate+" WHERE id = ?", id), id)
		if err != nil {
			return err
		}
		for col, m := range edits {
			if col < 0 || col >= len(t.Headers) {
				return &model.ValidationError{Message: fmt.Sprintf("column %d is out of range", col)}
			}
			cur, ok := t.Mappings[col]
			if ok {
				// 编辑只替换规则；示例值与有效值来自模板本身
				if m.TemplateDefault == "" {
					m.TemplateDefault = cur.TemplateDefault
				}
				if len(m.AcceptedValues) == 0 {
					m.AcceptedValues = cur.AcceptedValues
				}
			}
			if err := m.Validate(); err != nil {
				return err
			}
			t.Mappings[col] = m
		}

		_, mappings, err := encodeTemplate(t)
		if err != nil {
			return err
		}
		t.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			"UPDATE templates SET mappings_json = ?, updated_at = ? WHERE id = ?",
			mappings, t.UpdatedAt, id,
		); err != nil {
			return fmt.Errorf("failed to update template mappings: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTemplate 读取完整模板（含原始二进制）
//
// 二进制缺失或无法解码时 Payload 为 nil，由导出环节报告 TemplateIncomplete。
func (s *Store) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	return scanTemplate(s.db.QueryRowContext(ctx, selectTemplate+" WHERE id = ?", id), id)
}

// ListTemplates 列出模板摘要，marketplace 为空时返回全部
func (s *Store) ListTemplates(ctx context.Context, marketplace string) ([]model.TemplateSummary, error) {
	query := "SELECT id, owner, name, marketplace, category_id, headers_json, mappings_json, updated_at FROM templates WHERE 1=1"
	args := []interface{}{}
	if marketplace != "" {
		query += " AND marketplace = ? COLLATE NOCASE"
		args = append(args, marketplace)
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query templates failed: %w", err)
	}
	defer rows.Close()

	out := []model.TemplateSummary{}
	for rows.Next() {
		var (
			it                    model.TemplateSummary
			headersJSON, mappings string
		)
		if err := rows.Scan(&it.ID, &it.Owner, &it.Name, &it.Marketplace, &it.CategoryID, &headersJSON, &mappings, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template failed: %w", err)
		}
		var headers []string
		if err := json.Unmarshal([]byte(headersJSON), &headers); err == nil {
			it.Columns = len(headers)
		}
		if doc, err := model.DecodeMappingDocument([]byte(mappings)); err == nil {
			it.SheetName = doc.Layout.SheetName
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates failed: %w", err)
	}
	return out, nil
}

// DeleteTemplate 删除模板
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return requireAffected(res, templateResource, id)
}

const selectTemplate = `SELECT id, owner, name, marketplace, category_id, headers_json, mappings_json, created_at, updated_at FROM templates`

func scanTemplate(row *sql.Row, id string) (*model.Template, error) {
	var (
		t                        model.Template
		headersJSON, mappingJSON string
	)
	err := row.Scan(&t.ID, &t.Owner, &t.Name, &t.Marketplace, &t.CategoryID, &headersJSON, &mappingJSON, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Resource: templateResource, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query template: %w", err)
	}

	if err := json.Unmarshal([]byte(headersJSON), &t.Headers); err != nil {
		return nil, fmt.Errorf("decode template headers: %w", err)
	}
	doc, err := model.DecodeMappingDocument([]byte(mappingJSON))
	if err != nil {
		return nil, err
	}
	t.Mappings = doc.Mappings
	t.Layout = doc.Layout
	if doc.File != "" {
		payload, err := model.DecodePayload(doc.File)
		if err != nil {
			zap.L().Warn("stored template payload is unreadable", zap.String("template_id", t.ID), zap.Error(err))
		} else {
			t.Payload = payload
		}
	}
	return &t, nil
}

func encodeTemplate(t *model.Template) (string, string, error) {
	headers := t.Headers
	if headers == nil {
		headers = []string{}
	}
	h, err := json.Marshal(headers)
	if err != nil {
		return "", "", fmt.Errorf("encode template headers: %w", err)
	}
	doc, err := model.EncodeMappingDocument(t.Mappings, t.Layout, t.Payload)
	if err != nil {
		return "", "", fmt.Errorf("encode mapping document: %w", err)
	}
	return string(h), string(doc), nil
}

func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &model.NotFoundError{Resource: resource, ID: id}
	}
	return nil
}
