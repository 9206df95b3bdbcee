package writer

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wudi/redactkit/contentstream"
)

// object is a PDF object value that can be written in place.
type object interface {
	serialize(buf *bytes.Buffer)
}

type objectRef struct{ Num, Gen int }

type nameObj string
type numberObj float64
type refObj objectRef
type arrayObj []object

type dictObj map[string]object

type streamObj struct {
	Dict dictObj
	Data []byte
}

func name(v string) nameObj      { return nameObj(v) }
func number(f float64) numberObj { return numberObj(f) }
func ref(r objectRef) refObj     { return refObj(r) }
func array(items ...object) arrayObj {
	return arrayObj(items)
}

// newStream sets /Length from data.
func newStream(dict dictObj, data []byte) *streamObj {
	if dict == nil {
		dict = dictObj{}
	}
	dict["Length"] = number(float64(len(data)))
	return &streamObj{Dict: dict, Data: data}
}

func (n nameObj) serialize(buf *bytes.Buffer) {
	buf.WriteByte('/')
	buf.WriteString(string(n))
}

func (n numberObj) serialize(buf *bytes.Buffer) {
	buf.WriteString(contentstream.FormatNumber(float64(n)))
}

func (r refObj) serialize(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "%d %d R", r.Num, r.Gen)
}

func (a arrayObj) serialize(buf *bytes.Buffer) {
	buf.WriteByte('[')
	for i, it := range a {
		if i > 0 {
			buf.WriteByte(' ')
		}
		it.serialize(buf)
	}
	buf.WriteByte(']')
}

func (d dictObj) serialize(buf *bytes.Buffer) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteString("<<")
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString("/" + k + " ")
		d[k].serialize(buf)
	}
	buf.WriteString(">>")
}

func (s *streamObj) serialize(buf *bytes.Buffer) {
	s.Dict.serialize(buf)
	buf.WriteString("\nstream\n")
	buf.Write(s.Data)
	buf.WriteString("\nendstream")
}

// serializeObject writes one indirect object.
func serializeObject(buf *bytes.Buffer, r objectRef, obj object) {
	fmt.Fprintf(buf, "%d %d obj\n", r.Num, r.Gen)
	obj.serialize(buf)
	buf.WriteString("\nendobj\n")
}
