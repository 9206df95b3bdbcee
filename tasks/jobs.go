package tasks

import (
	"context"

	"github.com/wudi/redactkit/export"
	"github.com/wudi/redactkit/loader"
	"github.com/wudi/redactkit/model"
)

// Load rasterizes path in the background. The document is handed to the
// caller only through the outcome.
func Load(ctx context.Context, l *loader.Loader, path string, opts ...Option) *Handle[*model.Document] {
	return Run(ctx, func(ctx context.Context, report Reporter) (*model.Document, error) {
		return l.Load(ctx, path, loader.ProgressFunc(report))
	}, append([]Option{WithName("load")}, opts...)...)
}

// Export writes a private copy of doc, so the caller may keep editing while
// the export runs.
func Export(ctx context.Context, e *export.Exporter, doc *model.Document, dest string, eo export.Options, opts ...Option) *Handle[export.Result] {
	snapshot := doc.Clone()
	return Run(ctx, func(ctx context.Context, report Reporter) (export.Result, error) {
		return e.Export(ctx, snapshot, dest, eo, export.ProgressFunc(report))
	}, append([]Option{WithName("export")}, opts...)...)
}

// Batch applies fn to a private copy of doc and returns the copy for the
// caller to adopt. The original document is never touched.
func Batch(ctx context.Context, doc *model.Document, fn func(ctx context.Context, doc *model.Document, report Reporter) error, opts ...Option) *Handle[*model.Document] {
	work := doc.Clone()
	return Run(ctx, func(ctx context.Context, report Reporter) (*model.Document, error) {
		if err := fn(ctx, work, report); err != nil {
			return nil, err
		}
		return work, nil
	}, append([]Option{WithName("batch")}, opts...)...)
}
