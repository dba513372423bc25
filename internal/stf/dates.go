package stf

import (
	"fmt"
	"strings"
	"time"
)

// FormatStamp is how every timestamp appears in the JSON output. The trailing
// Z is a label only; no timezone conversion is performed, the clock fields of
// the source are copied verbatim.
const FormatStamp = "2006-01-02T15:04:05Z"

// The STF header timestamp has its own fixed format (Appendix B-5),
// independent of the selectable date table: MM/DD/YY;HH:MM:SS followed by the
// structured-file version marker.
const (
	headerLayout  = "1/2/06;15:04:05"
	headerTrailer = ";002"
)

// dateLayouts is the date format table from Appendix B-7, translated into
// time layouts. It is 1-indexed; index 0 is unused. Each entry lists the
// layouts tried in order: the canonical form first, then variants accepting
// two-digit years and lowercase meridiems as they occur in real exports.
// NOTE: the manual claims two-digit years throughout, which is wrong.
var dateLayouts = [...][]string{
	0:  nil,
	1:  {"1/2/2006 15:04", "1/2/06 15:04"},
	2:  {"2/1/2006 15:04", "2/1/06 15:04"},
	3:  {"2.1.2006 15:04", "2.1.06 15:04"},
	4:  {"2006-1-2 15:04", "06-1-2 15:04"},
	5:  {"2-Jan 15:04"},
	6:  {"2-Jan-2006 15:04", "2-Jan-06 15:04"},
	7:  {"1/2/2006 3:04PM", "1/2/06 3:04PM", "1/2/2006 3:04pm", "1/2/06 3:04pm"},
	8:  {"2/1/2006 3:04PM", "2/1/06 3:04PM", "2/1/2006 3:04pm", "2/1/06 3:04pm"},
	9:  {"2.1.2006 3:04PM", "2.1.06 3:04PM", "2.1.2006 3:04pm", "2.1.06 3:04pm"},
	10: {"2006-1-2 3:04PM", "06-1-2 3:04PM", "2006-1-2 3:04pm", "06-1-2 3:04pm"},
	11: {"2-Jan 3:04PM", "2-Jan 3:04pm"},
	12: {"2-Jan-2006 3:04PM", "2-Jan-06 3:04PM", "2-Jan-2006 3:04pm", "2-Jan-06 3:04pm"},
}

// MinDateFormat and MaxDateFormat bound the {d} selector. The default is 1
// (Appendix B-6).
const (
	MinDateFormat     = 1
	MaxDateFormat     = 12
	DefaultDateFormat = 1
)

// parseDate interprets value using the date table entry selected by format
// and reformats it as a FormatStamp string. Formats 5 and 11 have no year
// field; the year is left at its zero value rather than invented.
func parseDate(value string, format int) (string, error) {
	if format < MinDateFormat || format > MaxDateFormat {
		return "", fmt.Errorf("%w: %d", ErrBadDateFormat, format)
	}
	for _, layout := range dateLayouts[format] {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.Format(FormatStamp), nil
		}
	}
	return "", fmt.Errorf("%w: %q does not match date format %d", ErrBadDate, value, format)
}

// parseHeader interprets an {STF} header timestamp.
func parseHeader(value string) (string, error) {
	base, ok := strings.CutSuffix(value, headerTrailer)
	if !ok {
		return "", fmt.Errorf("%w: failed to parse STF header tag, %q", ErrBadDate, value)
	}
	t, err := time.Parse(headerLayout, base)
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse STF header tag, %q", ErrBadDate, value)
	}
	return t.Format(FormatStamp), nil
}
