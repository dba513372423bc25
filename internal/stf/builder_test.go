package stf

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/taviso/stfjson/internal/tree"
)

func convertJSON(t *testing.T, input string) string {
	t.Helper()
	doc, err := Convert(strings.NewReader(input), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := tree.Encode(&buf, doc, true); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func convertErr(t *testing.T, input string) error {
	t.Helper()
	_, err := Convert(strings.NewReader(input), testLogger())
	if err == nil {
		t.Fatalf("expected error for input %q", input)
	}
	return err
}

const sampleExport = `Exported from AGENDA.
{STF}10/01/20;12:30:00;002
{d}1
{C}Errands\
{r}AC{;}
{F}Things to do around town
{p}{C}Home\{+}{C}Work\{-}{;}
{.}
{I}
{T}Buy milk
{N}Semi-skimmed
{C}Errands\
{C}When;W@|12/31/20 23:59
{.}
{!}
`

func TestConvert_SingleBlock(t *testing.T) {
	got := convertJSON(t, sampleExport)
	want := `[{"timestamp":"2020-10-01T12:30:00Z",` +
		`"categories":[{"name":"Errands\\","attributes":["AC"],` +
		`"note":"Things to do around town",` +
		`"conditions":{"include":["Home\\"],"exclude":["Work\\"]}}],` +
		`"items":[{"categories":[{"type":"standard","name":"Errands"},` +
		`{"type":"date","name":"When","shortname":"W","value":"2020-12-31T23:59:00Z"}],` +
		`"text":"Buy milk","note":"Semi-skimmed"}]}]`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestConvert_ActionsGroup(t *testing.T) {
	input := "{STF}10/01/20;12:30:00;002\n{C}Auto\\\n{a}{C}Target\\{+}{;}\n{.}\n"
	got := convertJSON(t, input)
	want := `[{"timestamp":"2020-10-01T12:30:00Z",` +
		`"categories":[{"name":"Auto\\","attributes":[],` +
		`"actions":{"include":["Target\\"],"exclude":[]}}],` +
		`"items":[]}]`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestConvert_TwoHeadersTwoBlocks(t *testing.T) {
	input := "{STF}10/01/20;12:30:00;002\n{STF}10/02/20;01:02:03;002\n{I}\n{!}\n"
	doc, err := Convert(strings.NewReader(input), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Len() != 2 {
		t.Fatalf("blocks = %d, want 2", doc.Len())
	}
	first := doc.At(0).(*tree.Object)
	second := doc.At(1).(*tree.Object)
	if first.GetString("timestamp") != "2020-10-01T12:30:00Z" {
		t.Errorf("first timestamp = %q", first.GetString("timestamp"))
	}
	if second.GetString("timestamp") != "2020-10-02T01:02:03Z" {
		t.Errorf("second timestamp = %q", second.GetString("timestamp"))
	}
}

func TestConvert_DateFormatCarriesAcrossBlocks(t *testing.T) {
	// The {d} selector is process-wide: a later block inherits it.
	input := "{STF}10/01/20;12:30:00;002\n{d}5\n" +
		"{STF}10/02/20;01:02:03;002\n" +
		"{I}\n{C}Due@|31-Dec 23:59\n{!}\n"
	doc, err := Convert(strings.NewReader(input), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := doc.At(1).(*tree.Object)
	item := second.GetArray("items").At(0).(*tree.Object)
	link := item.GetArray("categories").At(0).(*tree.Object)
	if got := link.GetString("value"); got != "0000-12-31T23:59:00Z" {
		t.Errorf("value = %q, want format-5 stamp", got)
	}
}

func TestConvert_CommentChunksStayOutOfDocument(t *testing.T) {
	input := "{STF}10/01/20;12:30:00;002\n{S}ignore this\n{I}\n{!}\n"
	got := convertJSON(t, input)
	if strings.Contains(got, "ignore this") {
		t.Errorf("comment leaked into document: %s", got)
	}
}

func TestConvert_EmptyInput(t *testing.T) {
	got := convertJSON(t, "")
	if got != "[]" {
		t.Errorf("got %s, want []", got)
	}
}

func TestConvert_UnknownTagInRoot(t *testing.T) {
	err := convertErr(t, "{STF}10/01/20;12:30:00;002\n{Q}x{!}\n")
	if !errors.Is(err, ErrUnexpectedTag) {
		t.Fatalf("err = %v, want ErrUnexpectedTag", err)
	}
}

func TestConvert_DataBeforeHeader(t *testing.T) {
	err := convertErr(t, "{T}text without a header{!}\n")
	if !errors.Is(err, ErrUnexpectedTag) {
		t.Fatalf("err = %v, want ErrUnexpectedTag", err)
	}
}

func TestConvert_BadHeaderTimestamp(t *testing.T) {
	err := convertErr(t, "{STF}yesterday{!}\n")
	if !errors.Is(err, ErrBadDate) {
		t.Fatalf("err = %v, want ErrBadDate", err)
	}
}

func TestConvert_DateFormatOutOfRange(t *testing.T) {
	err := convertErr(t, "{STF}10/01/20;12:30:00;002\n{d}13{!}\n")
	if !errors.Is(err, ErrBadDateFormat) {
		t.Fatalf("err = %v, want ErrBadDateFormat", err)
	}
}

func TestConvert_AttributeLookaheadMismatch(t *testing.T) {
	err := convertErr(t, "{STF}10/01/20;12:30:00;002\n{C}X\\\n{r}AC{F}oops{!}\n")
	if !errors.Is(err, ErrLookahead) {
		t.Fatalf("err = %v, want ErrLookahead", err)
	}
}

func TestConvert_AttributeLookaheadAtEOF(t *testing.T) {
	err := convertErr(t, "{STF}10/01/20;12:30:00;002\n{C}X\\\n{r}AC{")
	if !errors.Is(err, ErrLookahead) {
		t.Fatalf("err = %v, want ErrLookahead", err)
	}
}

func TestConvert_DirectionLookaheadMismatch(t *testing.T) {
	err := convertErr(t, "{STF}10/01/20;12:30:00;002\n{C}X\\\n{p}{C}Y\\{.}\n")
	if !errors.Is(err, ErrLookahead) {
		t.Fatalf("err = %v, want ErrLookahead", err)
	}
}

func TestConvert_NoPartialOutputOnError(t *testing.T) {
	doc, err := Convert(strings.NewReader("{STF}10/01/20;12:30:00;002\n{Q}x{!}\n"), testLogger())
	if err == nil {
		t.Fatal("expected error")
	}
	if doc != nil {
		t.Errorf("doc = %v, want nil on fatal error", doc)
	}
}
