package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skuforge/internal/model"
	"skuforge/internal/service/excel"
	"skuforge/internal/store"
)

// Store 上传流程依赖的持久化接口
type Store interface {
	CreateTemplate(ctx context.Context, t *model.Template) error
	ReplaceTemplate(ctx context.Context, t *model.Template) error
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
	CreateImportLog(ctx context.Context, filename string, fileSize int64, fileHash string) (int64, error)
	CompleteImportLog(ctx context.Context, id int64, templateID, status, errorMessage string) error
}

// Coordinator 模板上传协调器：记录日志、推断结构、落库
type Coordinator struct {
	store      Store
	inferencer *excel.Inferencer
	uploadDir  string
	log        *zap.Logger
}

// NewCoordinator 创建上传协调器；uploadDir 为空时不保留原始文件副本
func NewCoordinator(st Store, uploadDir string, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		store:      st,
		inferencer: excel.NewInferencer(),
		uploadDir:  uploadDir,
		log:        log,
	}
}

// AnonymousOwner 未提供上传者身份时记录的 owner
const AnonymousOwner = "anonymous"

// UploadOptions 一次上传的参数
type UploadOptions struct {
	Filename    string
	Owner       string
	Marketplace string
	CategoryID  string
	Data        []byte

	// ReplaceID 非空时为重新上传：保留 id，整体替换内容
	ReplaceID string
}

// UploadResult 上传结果
type UploadResult struct {
	Template    *model.Template    `json:"template"`
	Inference   *excel.InferResult `json:"inference"`
	ImportLogID int64              `json:"importLogId"`
	FileHash    string             `json:"fileHash"`
	Duration    time.Duration      `json:"duration"`
}

// Upload 解析上传的工作簿并保存为模板
func (c *Coordinator) Upload(ctx context.Context, opts UploadOptions) (*UploadResult, error) {
	start := time.Now()
	if len(opts.Data) == 0 {
		return nil, &model.ValidationError{Message: "uploaded file is empty"}
	}
	if opts.ReplaceID != "" {
		if _, err := c.store.GetTemplate(ctx, opts.ReplaceID); err != nil {
			return nil, err
		}
	}

	sum := sha256.Sum256(opts.Data)
	hash := hex.EncodeToString(sum[:])
	logID, err := c.store.CreateImportLog(ctx, opts.Filename, int64(len(opts.Data)), hash)
	if err != nil {
		return nil, err
	}

	tmpl, inf, err := c.build(opts)
	if err != nil {
		c.finish(ctx, logID, "", err)
		return nil, err
	}

	if opts.ReplaceID != "" {
		err = c.store.ReplaceTemplate(ctx, tmpl)
	} else {
		err = c.store.CreateTemplate(ctx, tmpl)
	}
	if err != nil {
		c.finish(ctx, logID, tmpl.ID, err)
		return nil, err
	}

	if err := c.keepCopy(hash, opts); err != nil {
		// 副本只用于追溯，失败不影响上传
		c.log.Warn("failed to keep upload copy", zap.String("file", opts.Filename), zap.Error(err))
	}
	c.finish(ctx, logID, tmpl.ID, nil)

	res := &UploadResult{
		Template:    tmpl,
		Inference:   inf,
		ImportLogID: logID,
		FileHash:    hash,
		Duration:    time.Since(start),
	}
	c.log.Info("template uploaded",
		zap.String("template_id", tmpl.ID),
		zap.String("file", opts.Filename),
		zap.String("marketplace", tmpl.Marketplace),
		zap.String("sheet", tmpl.Layout.SheetName),
		zap.Int("columns", len(tmpl.Headers)),
		zap.Bool("confident", tmpl.Layout.Confident),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Reinfer 对已保存的二进制重新推断（诊断用，不落库）
func (c *Coordinator) Reinfer(ctx context.Context, id string) (*excel.InferResult, error) {
	tmpl, err := c.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(tmpl.Payload) == 0 {
		return nil, &model.TemplateIncompleteError{TemplateID: id}
	}
	return c.inferencer.Infer(tmpl.Payload)
}

func (c *Coordinator) build(opts UploadOptions) (*model.Template, *excel.InferResult, error) {
	inf, err := c.inferencer.Infer(opts.Data)
	if err != nil {
		if model.IsSchemaNotFound(err) {
			return nil, nil, err
		}
		return nil, nil, &model.ValidationError{Message: fmt.Sprintf("file is not a readable workbook: %v", err)}
	}

	id := opts.ReplaceID
	if id == "" {
		id = uuid.NewString()
	}
	owner := strings.TrimSpace(opts.Owner)
	if owner == "" {
		owner = AnonymousOwner
	}
	return &model.Template{
		ID:          id,
		Owner:       owner,
		Name:        filepath.Base(opts.Filename),
		Marketplace: strings.ToUpper(strings.TrimSpace(opts.Marketplace)),
		CategoryID:  strings.TrimSpace(opts.CategoryID),
		Headers:     inf.Headers,
		Mappings:    inf.Mappings,
		Layout:      inf.Layout(),
		Payload:     opts.Data,
	}, inf, nil
}

func (c *Coordinator) finish(ctx context.Context, logID int64, templateID string, cause error) {
	status, msg := store.ImportStatusSuccess, ""
	if cause != nil {
		status, msg = store.ImportStatusFailed, cause.Error()
	}
	if err := c.store.CompleteImportLog(ctx, logID, templateID, status, msg); err != nil {
		c.log.Warn("failed to complete import log", zap.Int64("import_log_id", logID), zap.Error(err))
	}
}

// keepCopy 按内容哈希保存原始上传文件
func (c *Coordinator) keepCopy(hash string, opts UploadOptions) error {
	if c.uploadDir == "" {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(opts.Filename))
	if ext == "" {
		ext = ".xlsx"
	}
	path := filepath.Join(c.uploadDir, hash+ext)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(c.uploadDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, opts.Data, 0644)
}
