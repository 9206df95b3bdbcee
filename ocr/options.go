package ocr

import "strconv"

// PageSegmentation is a Tesseract page segmentation mode.
type PageSegmentation int

const (
	SegmentAuto        PageSegmentation = 3
	SegmentSingleBlock PageSegmentation = 6
	SegmentSparse      PageSegmentation = 11
)

const (
	metaPageSegMode   = "tessedit_pageseg_mode"
	metaCharWhitelist = "tessedit_char_whitelist"
)

func setMeta(in *Input, key, value string) {
	if in.Metadata == nil {
		in.Metadata = make(map[string]string)
	}
	in.Metadata[key] = value
}

// WithPageSegmentation selects how the engine splits the page into blocks.
// Scanned forms with scattered fields usually read better with
// SegmentSparse.
func WithPageSegmentation(mode PageSegmentation) InputOption {
	return func(in *Input) { setMeta(in, metaPageSegMode, strconv.Itoa(int(mode))) }
}

// WithCharWhitelist restricts recognition to chars.
func WithCharWhitelist(chars string) InputOption {
	return func(in *Input) { setMeta(in, metaCharWhitelist, chars) }
}
