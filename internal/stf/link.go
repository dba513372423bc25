package stf

import (
	"fmt"
	"strings"

	"github.com/taviso/stfjson/internal/tree"
)

// Category type symbols (Appendix B-11). The trailing symbol on a link names
// its type:
//
//	\    standard
//	/    exclusive
//	|    unindexed (the manual says ¦, but real exports use |)
//	@|   date, followed by a value
//	#|   numeric, followed by a value
//
// Agenda uses % as an escape character for literal symbols (Appendix B-13).
const linkEscape = '%'

// parseLink parses the value of an item's {C} tag into a link object with
// keys type, name, and optionally shortname, alsomatch, and value. It is a
// pure function: it never reads more input.
func parseLink(def string, dateFormat int) (*tree.Object, error) {
	// At least one character of name plus the type symbol.
	if len(def) < 2 {
		return nil, fmt.Errorf("%w: attempted to parse invalid category link %q", ErrBadLink, def)
	}

	link := tree.NewObject()
	n := len(def)

	var names, value string
	var hasValue bool
	var typ string

	// Determine the link type. An unescaped trailing symbol wins; otherwise
	// look for the two-character date/numeric markers. The markers need no
	// escape check: if the pipe were not a real marker it would be escaped.
	switch {
	case def[n-1] == '\\' && def[n-2] != linkEscape:
		names, typ = def[:n-1], "standard"
	case def[n-1] == '/' && def[n-2] != linkEscape:
		names, typ = def[:n-1], "exclusive"
	case def[n-1] == '|' && def[n-2] != linkEscape && def[n-2] != '@' && def[n-2] != '#':
		names, typ = def[:n-1], "unindexed"
	default:
		if i := strings.Index(def, "@|"); i >= 0 {
			names, value, hasValue, typ = def[:i], def[i+2:], true, "date"
		} else if i := strings.Index(def, "#|"); i >= 0 {
			names, value, hasValue, typ = def[:i], def[i+2:], true, "numeric"
		} else {
			return nil, fmt.Errorf("%w: could not determine type of link %q", ErrBadLink, def)
		}
	}

	link.SetString("type", typ)

	// The name portion is ;-separated: name, optional shortname, then any
	// number of alsomatch aliases. Empty fields are skipped.
	var tokens []string
	for _, t := range strings.Split(names, ";") {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: a category must have a name: %q", ErrBadLink, def)
	}
	link.SetString("name", tokens[0])
	if len(tokens) > 1 {
		link.SetString("shortname", tokens[1])
	}
	if len(tokens) > 2 {
		alsomatch := tree.NewArray()
		for _, t := range tokens[2:] {
			alsomatch.Append(t)
		}
		link.Set("alsomatch", alsomatch)
	}

	if hasValue {
		// Remove the escape markers. If the unescaped text still contains a
		// literal ';' only the tail after the last one is kept; this mirrors
		// the reference implementation, quirk included.
		unescaped := strings.ReplaceAll(value, string(linkEscape), "")
		if i := strings.LastIndexByte(unescaped, ';'); i >= 0 {
			unescaped = unescaped[i+1:]
		}

		switch typ {
		case "date":
			stamp, err := parseDate(unescaped, dateFormat)
			if err != nil {
				return nil, err
			}
			link.SetString("value", stamp)
		default:
			return nil, fmt.Errorf("%w: didn't expect type %s to have a value: %q", ErrBadLink, typ, def)
		}
	}

	return link, nil
}
