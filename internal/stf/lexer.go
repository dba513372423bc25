// Package stf converts Lotus Agenda Structured File (STF) exports into a JSON
// document tree. The format is a stream of {tag}value chunks; see Appendix B
// of the Agenda manual for the documented subset. Several tags handled here
// ({r}, {p}, {a}, {+}, {-}, {;}) are undocumented but appear in real exports.
package stf

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"unicode"
)

const (
	openTag   = '{'
	closeTag  = '}'
	escapeTag = ' '
)

// Chunk is one (tag, value) pair lexed from the stream. Structural tags such
// as {;} and {!} carry no value; HasValue distinguishes an absent value from
// an empty one.
type Chunk struct {
	Tag      string
	Value    string
	HasValue bool
}

// Lexer reads STF chunks from a byte stream. It has no knowledge of document
// structure; the Builder decides what each chunk means.
type Lexer struct {
	r      *bufio.Reader
	logger *slog.Logger

	// pending is set when the brace that terminated the previous chunk has
	// been consumed; it belongs to the next chunk and is served first.
	pending bool
}

// NewLexer creates a lexer over r. Non-fatal diagnostics (empty tag names)
// are reported through logger.
func NewLexer(r io.Reader, logger *slog.Logger) *Lexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lexer{r: bufio.NewReader(r), logger: logger}
}

// valueless lists the tags that never carry data; the chunk ends at the
// closing brace without entering the data phase.
func valueless(tag string) bool {
	switch tag {
	case ";", "+", "-", ".", "!":
		return true
	}
	return false
}

func isSpace(b byte) bool {
	return unicode.IsSpace(rune(b))
}

// readByte returns the next input byte, serving a brace held back at the
// previous chunk boundary first.
func (l *Lexer) readByte() (byte, error) {
	if l.pending {
		l.pending = false
		return openTag, nil
	}
	return l.r.ReadByte()
}

// Next returns the next chunk from the stream. io.EOF is returned when the
// input is exhausted, including when it ends mid-chunk: the final read simply
// signals no more data, matching the reference behavior.
func (l *Lexer) Next() (Chunk, error) {
	type lexState int
	const (
		stateComment lexState = iota
		stateTag
		stateData
	)

	var (
		state    = stateComment
		tag      strings.Builder
		value    strings.Builder
		hasValue bool
	)

	for {
		c, err := l.readByte()
		if err != nil {
			return Chunk{}, io.EOF
		}

		switch state {
		case stateComment:
			// Leading whitespace before any tag is discarded silently.
			if isSpace(c) {
				continue
			}
			if c == openTag {
				state = stateTag
				continue
			}
			// Free text before the first tag: synthesize a comment chunk
			// and treat this character as the start of its value.
			tag.WriteString(tagComment)
			state = stateData
			value.WriteByte(c)
			hasValue = true

		case stateTag:
			if c != closeTag {
				tag.WriteByte(c)
				continue
			}
			if tag.Len() == 0 {
				l.logger.Warn("found an empty tag, data maybe malformed")
				state = stateData
				continue
			}
			if valueless(tag.String()) {
				return Chunk{Tag: tag.String()}, nil
			}
			state = stateData

		case stateData:
			if c == openTag {
				next, err := l.r.Peek(1)
				if err != nil || next[0] != escapeTag {
					// A real tag is starting; the brace is already
					// consumed, so hold it for the next call. UnreadByte
					// is no good here, Peek invalidates the last read.
					l.pending = true
					return Chunk{
						Tag:      tag.String(),
						Value:    strings.TrimRightFunc(value.String(), unicode.IsSpace),
						HasValue: hasValue,
					}, nil
				}
				// Escaped brace: drop the escape marker, keep the brace.
				_, _ = l.r.ReadByte()
			}
			// Discard leading whitespace.
			if isSpace(c) && value.Len() == 0 {
				continue
			}
			value.WriteByte(c)
			hasValue = true
		}
	}
}
