package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/wudi/redactkit/builder"
	"github.com/wudi/redactkit/contentstream"
)

// Write serializes a built document: catalog, page tree, then per page its
// fonts, image XObjects, content stream and page dictionary, followed by a
// classic xref table and trailer.
func Write(ctx context.Context, doc *builder.Document, out io.Writer) error {
	if doc == nil || len(doc.Pages) == 0 {
		return fmt.Errorf("write: no pages")
	}
	objects := make(map[objectRef]object)
	objNum := 1
	next := func() objectRef {
		r := objectRef{Num: objNum}
		objNum++
		return r
	}
	catalogRef := next()
	pagesRef := next()

	fontRefs := make(map[*builder.Font]objectRef)
	pageRefs := make([]object, 0, len(doc.Pages))
	for i, p := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		resources := dictObj{}
		if len(p.Resources.Fonts) > 0 {
			fonts := dictObj{}
			for _, key := range sortedKeys(p.Resources.Fonts) {
				f := p.Resources.Fonts[key]
				r, ok := fontRefs[f]
				if !ok {
					r = next()
					fontRefs[f] = r
					objects[r] = dictObj{
						"Type":     name("Font"),
						"Subtype":  name("Type1"),
						"BaseFont": name(f.BaseFont),
						"Encoding": name(f.Encoding),
					}
				}
				fonts[key] = ref(r)
			}
			resources["Font"] = fonts
		}
		if len(p.Resources.XObjects) > 0 {
			xobjects := dictObj{}
			for _, key := range sortedKeys(p.Resources.XObjects) {
				img := p.Resources.XObjects[key]
				r := next()
				objects[r] = newStream(dictObj{
					"Type":             name("XObject"),
					"Subtype":          name("Image"),
					"Width":            number(float64(img.Width)),
					"Height":           number(float64(img.Height)),
					"ColorSpace":       name(img.ColorSpace),
					"BitsPerComponent": number(float64(img.BitsPerComponent)),
					"Filter":           name(img.Filter),
				}, img.Data)
				xobjects[key] = ref(r)
			}
			resources["XObject"] = xobjects
		}
		contentRef := next()
		objects[contentRef] = newStream(nil, contentstream.Encode(p.Operations))

		box := p.MediaBox
		if box.URX <= box.LLX || box.URY <= box.LLY {
			return fmt.Errorf("write page %d: empty media box", i+1)
		}
		pageRef := next()
		objects[pageRef] = dictObj{
			"Type":      name("Page"),
			"Parent":    ref(pagesRef),
			"MediaBox":  array(number(box.LLX), number(box.LLY), number(box.URX), number(box.URY)),
			"Resources": resources,
			"Contents":  ref(contentRef),
		}
		pageRefs = append(pageRefs, ref(pageRef))
	}
	objects[pagesRef] = dictObj{
		"Type":  name("Pages"),
		"Count": number(float64(len(pageRefs))),
		"Kids":  array(pageRefs...),
	}
	objects[catalogRef] = dictObj{
		"Type":  name("Catalog"),
		"Pages": ref(pagesRef),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")
	ordered := make([]objectRef, 0, len(objects))
	for r := range objects {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })
	offsets := make(map[int]int, len(ordered))
	for _, r := range ordered {
		offsets[r.Num] = buf.Len()
		serializeObject(&buf, r, objects[r])
	}

	xrefOffset := buf.Len()
	maxObjNum := ordered[len(ordered)-1].Num
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObjNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObjNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d /Root %d 0 R>>\nstartxref\n%d\n%%%%EOF\n", maxObjNum+1, catalogRef.Num, xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
