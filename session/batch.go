package session

import (
	"bytes"
	"context"
	"slices"

	"github.com/wudi/redactkit/history"
	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/scripting"
	"github.com/wudi/redactkit/tasks"
)

// StartScript runs a JavaScript batch edit on a copy of the document in the
// background. Pass the outcome to ApplyBatch.
func (e *Editor) StartScript(ctx context.Context, script string) (*tasks.Handle[*model.Document], error) {
	if e.doc == nil {
		return nil, ErrNoDocument
	}
	color := string(e.settings.FillColor)
	return tasks.Batch(ctx, e.doc, func(ctx context.Context, doc *model.Document, report tasks.Reporter) error {
		report(0, "Running script")
		_, err := scripting.Run(ctx, doc, script, color, e.logger, scripting.WithTransformer(e.transformer))
		report(100, "Script finished")
		return err
	}, tasks.WithName("script"), tasks.WithLogger(e.logger)), nil
}

// RunScript runs a batch edit and applies the result, or leaves the
// document untouched on failure or cancellation.
func (e *Editor) RunScript(ctx context.Context, script string) error {
	h, err := e.StartScript(ctx, script)
	if err != nil {
		return err
	}
	out := h.Wait()
	if out.Err != nil {
		return out.Err
	}
	e.ApplyBatch(out.Value)
	return nil
}

// ApplyBatch installs a document produced by a batch task from the open
// one. Each page the batch changed gets one undo snapshot of its prior
// state, so the whole batch undoes page by page. A result with a different
// page count replaces the document and clears the undo stack.
func (e *Editor) ApplyBatch(doc *model.Document) {
	if doc == nil {
		return
	}
	old := e.doc
	e.doc = doc
	if old == nil || old.PageCount() != doc.PageCount() {
		e.history.Clear()
		e.logger.Info("batch applied", observability.Int("rectangles", doc.TotalRectangles()))
		return
	}
	changed := 0
	for i := 0; i < old.PageCount(); i++ {
		before, _ := old.Page(i)
		after, _ := doc.Page(i)
		if samePage(before, after) {
			continue
		}
		changed++
		if s, ok := history.Capture(old, i); ok {
			e.history.PushSnapshot(s)
		}
	}
	e.logger.Info("batch applied",
		observability.Int("rectangles", doc.TotalRectangles()),
		observability.Int("changed_pages", changed))
}

func samePage(a, b *model.Page) bool {
	if a.Size != b.Size || !slices.Equal(a.Rectangles(), b.Rectangles()) {
		return false
	}
	ai, bi := a.Image(), b.Image()
	if ai == nil || bi == nil {
		return ai == bi
	}
	return ai.Rect == bi.Rect && bytes.Equal(ai.Pix, bi.Pix)
}
