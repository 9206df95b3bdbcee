package api

import (
	"github.com/wudi/redactkit/model"
)

type pointView struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type rectangleView struct {
	ID    string    `json:"id"`
	Start pointView `json:"start"`
	End   pointView `json:"end"`
	Color string    `json:"color"`
}

type pageView struct {
	Index      int             `json:"index"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Rectangles []rectangleView `json:"rectangles"`
}

type documentView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Path        string     `json:"path"`
	CurrentPage int        `json:"current_page"`
	Zoom        int        `json:"zoom"`
	Undo        int        `json:"undo"`
	Pages       []pageView `json:"pages"`
}

func toPoint(p pointView) model.Point { return model.Point{X: p.X, Y: p.Y} }

func rectangleOf(r model.Rectangle) rectangleView {
	return rectangleView{
		ID:    r.ID,
		Start: pointView{X: r.Start.X, Y: r.Start.Y},
		End:   pointView{X: r.End.X, Y: r.End.Y},
		Color: r.Color,
	}
}

func pageOf(index int, p *model.Page) pageView {
	v := pageView{Index: index, Rectangles: []rectangleView{}}
	if img := p.Image(); img != nil {
		v.Width, v.Height = img.Rect.Dx(), img.Rect.Dy()
	}
	for _, r := range p.Rectangles() {
		v.Rectangles = append(v.Rectangles, rectangleOf(r))
	}
	return v
}

func (s *Server) documentOf(doc *model.Document) documentView {
	v := documentView{
		ID:          doc.ID,
		Title:       doc.Title(),
		Path:        doc.FilePath,
		CurrentPage: doc.CurrentPageIndex(),
		Zoom:        s.editor.Zoom(),
		Undo:        s.editor.History().Len(),
		Pages:       []pageView{},
	}
	for i, p := range doc.Pages() {
		v.Pages = append(v.Pages, pageOf(i, p))
	}
	return v
}
