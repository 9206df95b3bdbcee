// Package contentstream models page content as a list of operators and
// encodes it to the byte form stored in a PDF content stream.
package contentstream

import (
	"bytes"
	"strconv"
	"strings"
)

// Operand is one argument of a content stream operator.
type Operand interface {
	appendTo(buf *bytes.Buffer)
}

// Number is a numeric operand, written in the shortest exact form.
type Number float64

// Name is a name operand such as a font or XObject resource key.
type Name string

// String is a literal string operand holding already-encoded bytes.
type String []byte

func (n Number) appendTo(buf *bytes.Buffer) {
	buf.WriteString(FormatNumber(float64(n)))
}

func (n Name) appendTo(buf *bytes.Buffer) {
	buf.WriteByte('/')
	buf.WriteString(string(n))
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`, "\n", `\n`)

func (s String) appendTo(buf *bytes.Buffer) {
	buf.WriteByte('(')
	buf.WriteString(stringEscaper.Replace(string(s)))
	buf.WriteByte(')')
}

// Operation is an operator preceded by its operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Op builds an Operation.
func Op(operator string, operands ...Operand) Operation {
	return Operation{Operator: operator, Operands: operands}
}

// Encode writes ops one per line.
func Encode(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		for _, arg := range op.Operands {
			arg.appendTo(&buf)
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FormatNumber trims a float to at most four decimals, the precision PDF
// readers honor in practice.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
