package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skuforge/internal/model"
	"skuforge/internal/service/codegen"
	"skuforge/internal/service/excel"
	"skuforge/internal/service/pricing"
)

// 导出产物的 Content-Type
const (
	ContentTypeXLSM = "application/vnd.ms-excel.sheet.macroEnabled.12"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// Source 导出所需的只读数据源
type Source interface {
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
	GetListings(ctx context.Context, ids []string) ([]model.Listing, error)
	ListPriceAdjustments(ctx context.Context) ([]model.PriceAdjustment, error)
	ListExchangeRates(ctx context.Context) ([]model.ExchangeRate, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// Exporter 导出协调器：并发加载输入，再交给注入引擎或平铺 CSV
type Exporter struct {
	src       Source
	injector  *excel.Injector
	codes     *codegen.Generator
	exportDir string
	log       *zap.Logger
	now       func() time.Time
}

// NewExporter 创建导出器；exportDir 为空时不在本地保留产物
func NewExporter(src Source, codes *codegen.Generator, exportDir string, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		src:       src,
		injector:  excel.NewInjector(),
		codes:     codes,
		exportDir: exportDir,
		log:       log,
		now:       time.Now,
	}
}

// Request 导出请求；TemplateID 为空时输出平铺 CSV
type Request struct {
	TemplateID  string
	Marketplace string
	ListingIDs  []string
	Progress    func(ProgressEvent)
}

// Artifact 导出产物
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

type inputs struct {
	template    *model.Template
	listings    []model.Listing
	adjustments []model.PriceAdjustment
	rates       []model.ExchangeRate
	categories  []model.Category
}

// Export 执行一次导出；失败时不返回任何产物
func (e *Exporter) Export(ctx context.Context, req Request) (*Artifact, error) {
	start := e.now()
	marketplace := strings.ToUpper(strings.TrimSpace(req.Marketplace))
	if marketplace == "" {
		return nil, &model.ValidationError{Message: "marketplace is required", Fields: map[string]string{"marketplace": ""}}
	}

	reportProgress(req.Progress, 0, StageLoad)
	in, err := e.load(ctx, req)
	if err != nil {
		return nil, err
	}
	resolveCategories(in.listings, in.categories)

	var art *Artifact
	if in.template == nil {
		data, err := FlatCSV(in.listings)
		if err != nil {
			return nil, &model.SerializationError{Err: err}
		}
		art = &Artifact{
			Filename:    fmt.Sprintf("listings-%s-%s.csv", strings.ToLower(marketplace), start.Format("20060102-150405")),
			ContentType: ContentTypeCSV,
			Data:        data,
			Rows:        len(in.listings),
		}
	} else {
		reportProgress(req.Progress, 40, StageInject)
		res, err := e.injector.Inject(ctx, excel.InjectRequest{
			Template:    in.template,
			Marketplace: marketplace,
			Listings:    in.listings,
			Pricing:     pricing.NewResolver(in.adjustments, in.rates),
			Codes:       e.codes,
		})
		if err != nil {
			return nil, err
		}
		reportProgress(req.Progress, 90, StageSerialize)
		name, ctype := artifactName(in.template.Name, marketplace, start)
		art = &Artifact{Filename: name, ContentType: ctype, Data: res.Data, Rows: res.Rows}
	}

	e.keep(art)
	reportProgress(req.Progress, 100, StageDone)
	e.log.Info("export finished",
		zap.String("template_id", req.TemplateID),
		zap.String("marketplace", marketplace),
		zap.Int("records", art.Rows),
		zap.Int("bytes", len(art.Data)),
		zap.Duration("duration", e.now().Sub(start)),
	)
	return art, nil
}

// load 并发读取模板、记录、规则、汇率与类目；任一失败即取消其余读取
func (e *Exporter) load(ctx context.Context, req Request) (*inputs, error) {
	in := &inputs{}
	g, gctx := errgroup.WithContext(ctx)

	if req.TemplateID != "" {
		g.Go(func() error {
			t, err := e.src.GetTemplate(gctx, req.TemplateID)
			in.template = t
			return err
		})
	}
	if len(req.ListingIDs) > 0 {
		g.Go(func() error {
			l, err := e.src.GetListings(gctx, req.ListingIDs)
			in.listings = l
			return err
		})
	}
	g.Go(func() error {
		a, err := e.src.ListPriceAdjustments(gctx)
		in.adjustments = a
		return err
	})
	g.Go(func() error {
		r, err := e.src.ListExchangeRates(gctx)
		in.rates = r
		return err
	})
	g.Go(func() error {
		c, err := e.src.ListCategories(gctx)
		in.categories = c
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return in, nil
}

// resolveCategories 只有类目名称的记录按名称补全类目 id
func resolveCategories(listings []model.Listing, categories []model.Category) {
	if len(categories) == 0 {
		return
	}
	for i := range listings {
		l := &listings[i]
		if l.CategoryID != "" || l.CategoryName == "" {
			continue
		}
		for _, c := range categories {
			if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(l.CategoryName)) {
				l.CategoryID = c.ID
				break
			}
		}
	}
}

func artifactName(templateName, marketplace string, at time.Time) (string, string) {
	ext := strings.ToLower(filepath.Ext(templateName))
	base := strings.TrimSuffix(filepath.Base(templateName), filepath.Ext(templateName))
	if base == "" || base == "." {
		base = "template"
	}
	ctype := ContentTypeXLSX
	if ext == ".xlsm" {
		ctype = ContentTypeXLSM
	} else {
		ext = ".xlsx"
	}
	return fmt.Sprintf("%s-%s-%s%s", base, strings.ToLower(marketplace), at.Format("20060102-150405"), ext), ctype
}

// keep 在导出目录保留一份产物副本，失败只记日志
func (e *Exporter) keep(art *Artifact) {
	if e.exportDir == "" {
		return
	}
	if err := os.MkdirAll(e.exportDir, 0755); err != nil {
		e.log.Warn("failed to create export dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(filepath.Join(e.exportDir, art.Filename), art.Data, 0644); err != nil {
		e.log.Warn("failed to keep export copy", zap.String("file", art.Filename), zap.Error(err))
	}
}
