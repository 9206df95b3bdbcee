package api

import (
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wudi/redactkit/export"
	"github.com/wudi/redactkit/model"
	"github.com/wudi/redactkit/observability"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	next := s.editor.Settings()
	if err := decode(r, &next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.editor.ApplySettings(next); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if s.settings != nil {
		if err := s.settings.Save(next); err != nil {
			s.logger.Warn("settings not persisted", observability.Error("error", err))
		}
	}
	writeJSON(w, http.StatusOK, s.editor.Settings())
}

type openRequest struct {
	Path string `json:"path"`
}

type openResponse struct {
	Document documentView `json:"document"`
	Restored int          `json:"restored"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, err := s.resolve(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	restored, err := s.editor.Open(r.Context(), path, nil)
	if err != nil {
		s.logger.Warn("open failed", observability.String("path", path), observability.Error("error", err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, openResponse{Document: s.documentOf(s.editor.Document()), Restored: restored})
}

// document writes 409 and returns nil when nothing is open.
func (s *Server) document(w http.ResponseWriter) *model.Document {
	doc := s.editor.Document()
	if doc == nil {
		writeError(w, http.StatusConflict, "no document open")
	}
	return doc
}

func (s *Server) handleDocument(w http.ResponseWriter, _ *http.Request) {
	if doc := s.document(w); doc != nil {
		writeJSON(w, http.StatusOK, s.documentOf(doc))
	}
}

func (s *Server) handleClose(w http.ResponseWriter, _ *http.Request) {
	if err := s.editor.Close(); err != nil {
		s.logger.Warn("auto-save on close failed", observability.Error("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

type goToRequest struct {
	Page int `json:"page"`
}

func (s *Server) handleGoTo(w http.ResponseWriter, r *http.Request) {
	var req goToRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc := s.document(w)
	if doc == nil {
		return
	}
	if !s.editor.GoTo(req.Page) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %d out of range", req.Page))
		return
	}
	writeJSON(w, http.StatusOK, s.documentOf(doc))
}

func (s *Server) handleNext(w http.ResponseWriter, _ *http.Request) {
	if doc := s.document(w); doc != nil {
		s.editor.NextPage()
		writeJSON(w, http.StatusOK, s.documentOf(doc))
	}
}

func (s *Server) handlePrevious(w http.ResponseWriter, _ *http.Request) {
	if doc := s.document(w); doc != nil {
		s.editor.PreviousPage()
		writeJSON(w, http.StatusOK, s.documentOf(doc))
	}
}

type zoomRequest struct {
	Zoom int `json:"zoom"`
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, zoomRequest{Zoom: s.editor.SetZoom(req.Zoom)})
}

type undoResponse struct {
	Undone bool `json:"undone"`
	Page   int  `json:"page"`
}

func (s *Server) handleUndo(w http.ResponseWriter, _ *http.Request) {
	if s.document(w) == nil {
		return
	}
	page, ok := s.editor.Undo()
	writeJSON(w, http.StatusOK, undoResponse{Undone: ok, Page: page})
}

func (s *Server) handleSave(w http.ResponseWriter, _ *http.Request) {
	if s.document(w) == nil {
		return
	}
	if err := s.editor.Save(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exportRequest struct {
	Path string `json:"path"`
}

type exportResponse struct {
	Path    string   `json:"path"`
	Pages   int      `json:"pages"`
	Skipped []string `json:"skipped"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.document(w) == nil {
		return
	}
	dest, err := s.resolve(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.editor.Export(r.Context(), dest, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrNoPages) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	out := exportResponse{Path: res.Path, Pages: res.Pages, Skipped: []string{}}
	for _, pe := range res.Skipped {
		out.Skipped = append(out.Skipped, pe.Error())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClearAll(w http.ResponseWriter, _ *http.Request) {
	if s.document(w) == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": s.editor.ClearAll()})
}

// onPage moves the cursor to the {page} URL parameter. Edits apply to the
// current page.
func (s *Server) onPage(w http.ResponseWriter, r *http.Request) (*model.Page, int, bool) {
	doc := s.document(w)
	if doc == nil {
		return nil, 0, false
	}
	index, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || !s.editor.GoTo(index) {
		writeError(w, http.StatusNotFound, "page not found")
		return nil, 0, false
	}
	page, _ := doc.Page(index)
	return page, index, true
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if page, index, ok := s.onPage(w, r); ok {
		writeJSON(w, http.StatusOK, pageOf(index, page))
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.onPage(w, r); !ok {
		return
	}
	img, ok := s.editor.Preview()
	if !ok {
		writeError(w, http.StatusNotFound, "page has no image")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		s.logger.Warn("preview encode failed", observability.Error("error", err))
	}
}

type rotateRequest struct {
	Degrees float64 `json:"degrees"`
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, index, ok := s.onPage(w, r)
	if !ok {
		return
	}
	if !s.editor.Rotate(req.Degrees) {
		writeError(w, http.StatusUnprocessableEntity, "rotate failed")
		return
	}
	writeJSON(w, http.StatusOK, pageOf(index, page))
}

type cropRequest struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	var req cropRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, index, ok := s.onPage(w, r)
	if !ok {
		return
	}
	if !s.editor.Crop(req.X, req.Y, req.Width, req.Height) {
		writeError(w, http.StatusUnprocessableEntity, "crop failed")
		return
	}
	writeJSON(w, http.StatusOK, pageOf(index, page))
}

type addRequest struct {
	Start pointView `json:"start"`
	End   pointView `json:"end"`
	Color string    `json:"color,omitempty"`
}

func (s *Server) handleAddRectangle(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, _, ok := s.onPage(w, r); !ok {
		return
	}
	color := req.Color
	if color == "" {
		color = string(s.editor.Settings().FillColor)
	}
	if _, err := model.ParseColor(color); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rect, ok := s.editor.AddRectangleColor(toPoint(req.Start), toPoint(req.End), color)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "rectangle is empty")
		return
	}
	writeJSON(w, http.StatusCreated, rectangleOf(rect))
}

type sizeView struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// patchRequest applies move, resize and recolor in that order. Each
// present field is a separate undo step.
type patchRequest struct {
	Move   *pointView `json:"move,omitempty"`
	Resize *sizeView  `json:"resize,omitempty"`
	Color  string     `json:"color,omitempty"`
}

func (s *Server) handlePatchRectangle(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, _, ok := s.onPage(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, found := page.Rectangle(id); !found {
		writeError(w, http.StatusNotFound, "rectangle not found")
		return
	}
	if req.Color != "" {
		if _, err := model.ParseColor(req.Color); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Move != nil && !s.editor.Move(id, req.Move.X, req.Move.Y) {
		writeError(w, http.StatusUnprocessableEntity, "move failed")
		return
	}
	if req.Resize != nil && !s.editor.Resize(id, req.Resize.Width, req.Resize.Height) {
		writeError(w, http.StatusUnprocessableEntity, "resize failed")
		return
	}
	if req.Color != "" && !s.editor.Recolor(id, req.Color) {
		writeError(w, http.StatusUnprocessableEntity, "recolor failed")
		return
	}
	rect, _ := page.Rectangle(id)
	writeJSON(w, http.StatusOK, rectangleOf(rect))
}

func (s *Server) handleDeleteRectangle(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.onPage(w, r); !ok {
		return
	}
	if !s.editor.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "rectangle not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearPage(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.onPage(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": s.editor.ClearPage()})
}
