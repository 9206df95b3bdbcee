package writer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Merge concatenates complete PDF documents, in order, into w.
func Merge(w io.Writer, docs [][]byte) error {
	switch len(docs) {
	case 0:
		return errors.New("merge: no documents")
	case 1:
		_, err := w.Write(docs[0])
		return err
	}
	rsc := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		rsc[i] = bytes.NewReader(d)
	}
	if err := api.MergeRaw(rsc, w, false, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("merge %d documents: %w", len(docs), err)
	}
	return nil
}

// PageCount reports the number of pages in a PDF held in memory.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}
