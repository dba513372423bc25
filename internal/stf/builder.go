package stf

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/taviso/stfjson/internal/tree"
)

// Tag names understood by the builder. {STF} through {!} are documented in
// Appendix B-4; the rest are undocumented but generated by Agenda 2.0b.
const (
	tagHeader     = "STF" // begins a structured file
	tagComment    = "S"   // comment text, ignored on import
	tagDateFormat = "d"   // selects a date format from the table
	tagCategory   = "C"   // category definition, or a link inside an item
	tagItem       = "I"   // item definition
	tagAttribute  = "r"   // category attribute
	tagCatNote    = "F"   // category note
	tagItemText   = "T"   // item text
	tagItemNote   = "N"   // item note
	tagConditions = "p"   // category assignment conditions
	tagActions    = "a"   // category assignment actions
	tagInclude    = "+"   // assignment direction: include
	tagExclude    = "-"   // assignment direction: exclude
	tagEnd        = ";"   // end of attribute or assignment group
	tagCatEnd     = "."   // end of a category specification
	tagItemEnd    = "!"   // end of an item specification
)

type builderState int

const (
	stateNone builderState = iota
	stateRoot
	stateCategory
	stateCategoryCond
	stateCategoryActions
	stateItem
)

// Builder assembles the document tree from the lexer's chunk stream. It is
// the sole driver of the lexer; the attribute and assignment handlers pull
// one extra chunk synchronously when the grammar requires it.
type Builder struct {
	lx     *Lexer
	logger *slog.Logger
	state  builderState

	// The {d} selector survives across {STF} headers: a new block inherits
	// the previous block's date format. Deliberate fidelity to the
	// reference implementation, even though it is probably unintended.
	dateFormat int

	root *tree.Array

	// References into the tree for whatever is currently open. Only valid
	// while the corresponding state is active.
	categories *tree.Array
	items      *tree.Array
	category   *tree.Object
	attributes *tree.Array
	item       *tree.Object
	itemcats   *tree.Array
	include    *tree.Array
	exclude    *tree.Array
}

// NewBuilder creates a builder reading from lx.
func NewBuilder(lx *Lexer, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		lx:         lx,
		logger:     logger,
		state:      stateNone,
		dateFormat: DefaultDateFormat,
		root:       tree.NewArray(),
	}
}

// SetDateFormat sets the initial date format selector, used for dated links
// until a {d} tag overrides it. Out-of-range values are ignored.
func (b *Builder) SetDateFormat(n int) {
	if n >= MinDateFormat && n <= MaxDateFormat {
		b.dateFormat = n
	}
}

// Run consumes the entire chunk stream and returns the document: an array of
// blocks, one per {STF} header. Any fatal condition aborts the whole run;
// there is no partial output.
func (b *Builder) Run() (*tree.Array, error) {
	for {
		chunk, err := b.lx.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return b.root, nil
			}
			return nil, err
		}

		// Comment chunks are diagnostics in any state, never document data.
		if chunk.Tag == tagComment {
			if chunk.HasValue {
				b.logger.Info("comment", slog.String("text", chunk.Value))
			}
			continue
		}

		if err := b.dispatch(chunk); err != nil {
			return nil, err
		}
	}
}

// dispatch routes one chunk through the state table. A header seen in the
// root state closes the current block and is reprocessed under the initial
// state without consuming another chunk.
func (b *Builder) dispatch(c Chunk) error {
	for {
		switch b.state {
		case stateNone:
			return b.handleNone(c)
		case stateRoot:
			if c.Tag == tagHeader {
				b.state = stateNone
				continue
			}
			return b.handleRoot(c)
		case stateCategory:
			return b.handleCategory(c)
		case stateCategoryCond, stateCategoryActions:
			return b.handleAssignment(c)
		case stateItem:
			return b.handleItem(c)
		default:
			return fmt.Errorf("%w: unexpected state transition, %s", ErrUnexpectedTag, c.Tag)
		}
	}
}

func (b *Builder) handleNone(c Chunk) error {
	if c.Tag != tagHeader {
		return fmt.Errorf("%w: [none] unexpected tag %s here", ErrUnexpectedTag, c.Tag)
	}

	timestamp, err := parseHeader(c.Value)
	if err != nil {
		return err
	}

	block := tree.NewObject()
	b.categories = tree.NewArray()
	b.items = tree.NewArray()
	block.SetString("timestamp", timestamp)
	block.Set("categories", b.categories)
	block.Set("items", b.items)
	b.root.Append(block)

	b.state = stateRoot
	return nil
}

func (b *Builder) handleRoot(c Chunk) error {
	switch c.Tag {
	case tagDateFormat:
		// Change date format, Appendix B-6.
		n, err := strconv.Atoi(c.Value)
		if err != nil || n < MinDateFormat || n > MaxDateFormat {
			return fmt.Errorf("%w: invalid date format requested: %q", ErrBadDateFormat, c.Value)
		}
		b.dateFormat = n

	case tagCategory:
		// The category name keeps the type symbols declaring its kind
		// (Appendix B-11) untranslated.
		b.category = tree.NewObject()
		b.attributes = tree.NewArray()
		b.category.SetString("name", c.Value)
		b.category.Set("attributes", b.attributes)
		b.categories.Append(b.category)
		b.state = stateCategory

	case tagItem:
		b.item = tree.NewObject()
		b.itemcats = tree.NewArray()
		b.item.Set("categories", b.itemcats)
		b.items.Append(b.item)
		b.state = stateItem

	default:
		return fmt.Errorf("%w: [root] unexpected tag %s here", ErrUnexpectedTag, c.Tag)
	}
	return nil
}

func (b *Builder) handleCategory(c Chunk) error {
	switch c.Tag {
	case tagAttribute:
		b.attributes.Append(c.Value)
		// Each attribute is terminated by its own {;} chunk.
		end, err := b.lx.Next()
		if err != nil {
			return fmt.Errorf("%w: failed to find end-attribute tag", ErrLookahead)
		}
		if end.Tag != tagEnd || end.HasValue {
			return fmt.Errorf("%w: invalid end-attribute tag {%s}", ErrLookahead, end.Tag)
		}

	case tagCatEnd:
		b.category = nil
		b.attributes = nil
		b.state = stateRoot

	case tagCatNote:
		b.category.SetString("note", c.Value)

	case tagConditions, tagActions:
		include := tree.NewArray()
		exclude := tree.NewArray()
		group := tree.NewObject()
		group.Set("include", include)
		group.Set("exclude", exclude)

		if c.Tag == tagActions {
			b.category.Set("actions", group)
			b.state = stateCategoryActions
		} else {
			b.category.Set("conditions", group)
			b.state = stateCategoryCond
		}
		b.include = include
		b.exclude = exclude

	default:
		return fmt.Errorf("%w: [category] unexpected tag %s here", ErrUnexpectedTag, c.Tag)
	}
	return nil
}

// handleAssignment covers both the conditions and actions states; each
// referenced category is followed by a direction chunk, {+} or {-}.
func (b *Builder) handleAssignment(c Chunk) error {
	switch c.Tag {
	case tagCategory:
		dir, err := b.lx.Next()
		if err != nil {
			return fmt.Errorf("%w: failed to find end-category tag", ErrLookahead)
		}
		switch dir.Tag {
		case tagInclude:
			b.include.Append(c.Value)
		case tagExclude:
			b.exclude.Append(c.Value)
		default:
			return fmt.Errorf("%w: failed to find assignment type", ErrLookahead)
		}

	case tagEnd:
		b.include = nil
		b.exclude = nil
		b.state = stateCategory

	default:
		return fmt.Errorf("%w: [categoryopts] unexpected tag %s here", ErrUnexpectedTag, c.Tag)
	}
	return nil
}

func (b *Builder) handleItem(c Chunk) error {
	switch c.Tag {
	case tagItemText:
		b.item.SetString("text", c.Value)

	case tagItemNote:
		b.item.SetString("note", c.Value)

	case tagCategory:
		link, err := parseLink(c.Value, b.dateFormat)
		if err != nil {
			return err
		}
		b.itemcats.Append(link)

	case tagCatEnd:
		// No-op inside an item.

	case tagItemEnd:
		b.item = nil
		b.itemcats = nil
		b.state = stateRoot

	default:
		return fmt.Errorf("%w: [item] unexpected tag %s here", ErrUnexpectedTag, c.Tag)
	}
	return nil
}

// Convert reads an entire STF stream and returns the document tree: an array
// of block objects ready for serialization.
func Convert(r io.Reader, logger *slog.Logger) (*tree.Array, error) {
	return NewBuilder(NewLexer(r, logger), logger).Run()
}
