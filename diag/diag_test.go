package diag

import (
	"strings"
	"testing"

	"github.com/silcore/compiler/sourcemap"
)

func TestEmitAndFlush(t *testing.T) {
	sink := NewMemSink()
	var loc sourcemap.Loc
	sink.Emit(loc, KindInvalidRedecl, Error, "f").Highlight(sourcemap.Range{}).Flush()
	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("len(Records()) = %d, want 1", len(recs))
	}
	if recs[0].Kind != KindInvalidRedecl {
		t.Fatalf("Kind = %v, want %v", recs[0].Kind, KindInvalidRedecl)
	}
	if !sink.HasErrors() {
		t.Fatalf("HasErrors() = false after emitting an Error diagnostic")
	}
}

func TestFlushIsIdempotent(t *testing.T) {
	sink := NewMemSink()
	var loc sourcemap.Loc
	f := sink.Emit(loc, KindInvalidRedecl, Error)
	f.Flush()
	f.Flush()
	if len(sink.Records()) != 1 {
		t.Fatalf("double Flush produced %d records, want 1", len(sink.Records()))
	}
}

func TestFixItAccumulation(t *testing.T) {
	sink := NewMemSink()
	var loc sourcemap.Loc
	sink.Emit(loc, KindRequiredInitializerMissing, Error).
		FixItInsert(loc, "required init(x: Int) { fatalError() }").
		Flush()
	fixits := sink.Records()[0].FixIts
	if len(fixits) != 1 || !fixits[0].IsInsertion {
		t.Fatalf("expected one insertion fix-it, got %+v", fixits)
	}
}

func TestRenderFixItDoc(t *testing.T) {
	rec := Record{
		Kind: KindRequiredInitializerMissing,
		FixIts: []FixIt{
			{Text: "required init(x: Int) { fatalError() }", IsInsertion: true},
		},
	}
	html, err := RenderFixItDoc(rec)
	if err != nil {
		t.Fatalf("RenderFixItDoc: %v", err)
	}
	if !strings.Contains(html, "<h2>") {
		t.Errorf("rendered doc missing expected heading markup: %s", html)
	}
	if !strings.Contains(html, "required init(x: Int)") {
		t.Errorf("rendered doc missing fix-it text: %s", html)
	}
}

func TestRenderFixItDocNoFixIts(t *testing.T) {
	html, err := RenderFixItDoc(Record{Kind: KindInheritanceCycle})
	if err != nil {
		t.Fatalf("RenderFixItDoc: %v", err)
	}
	if !strings.Contains(html, "no suggested fix") {
		t.Errorf("rendered doc missing no-fix-it placeholder: %s", html)
	}
}
