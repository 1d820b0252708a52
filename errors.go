package pgdelta

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseError is returned from the various `Parse` methods when an
// invalid or unsupported SQL is found. When stringified, the result
// will look something like this:
//
//	parse error: unterminated quoted string at line 3 column 14
//	    "GRANT SELECT ON 'foo" <---- AROUND HERE
type ParseError interface {
	error
	File() string
	Line() int
	Col() int
	Message() string
	EOF() bool
}

type parseError struct {
	file    string
	context string
	line    int
	col     int
	message string
	eof     bool
}

// File returns the file name (if applicable) where the error was encountered
func (e parseError) File() string { return e.file }

// Line returns the line number where the error was encountered
func (e parseError) Line() int { return e.line }

// Col returns the column number where the error was encountered
func (e parseError) Col() int { return e.col }

// EOF returns true if the error was encountered at EOF
func (e parseError) EOF() bool { return e.eof }

// Message returns the actual error message
func (e parseError) Message() string { return e.message }

// Error returns the formatted string representation of this parse error.
func (e parseError) Error() string {
	var buf bytes.Buffer
	buf.WriteString("parse error: ")
	buf.WriteString(e.message)
	if f := e.file; len(f) > 0 {
		buf.WriteString(" in file ")
		buf.WriteString(f)
	}
	buf.WriteString(" at line ")
	buf.WriteString(strconv.Itoa(e.line))
	buf.WriteString(" column ")
	buf.WriteString(strconv.Itoa(e.col))
	if e.eof {
		buf.WriteString(" (at EOF)")
	}
	buf.WriteString("\n    ")
	buf.WriteString(e.context)
	return buf.String()
}

// position returns the 1-based line and column of byte offset pos
func position(input string, pos int) (int, int) {
	if pos > len(input) {
		pos = len(input)
	}
	line := strings.Count(input[:pos], "\n") + 1
	col := pos + 1
	if i := strings.LastIndexByte(input[:pos], '\n'); i >= 0 {
		col = pos - i
	}
	return line, col
}

func newParseError(ctx *parseCtx, t Token, msg string, args ...interface{}) error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	// the context runs from the closest newline before the token up to
	// the end of the offending token
	end := t.Pos + len(t.Value)
	if end > len(ctx.input) {
		end = len(ctx.input)
	}
	var ctxbegin int
	if i := strings.LastIndexByte(ctx.input[:t.Pos], '\n'); i >= 0 {
		ctxbegin = i + 1
	}

	// if this is more than 40 chars from the end, truncate it
	if end-ctxbegin > 40 {
		ctxbegin = end - 40
		for ctxbegin < end && !utf8.RuneStart(ctx.input[ctxbegin]) {
			ctxbegin++
		}
	}

	line, col := position(ctx.input, t.Pos)
	return &parseError{
		file:    ctx.file,
		context: fmt.Sprintf(`"%s" <---- AROUND HERE`, ctx.input[ctxbegin:end]),
		line:    line,
		col:     col,
		eof:     t.EOF,
		message: msg,
	}
}
