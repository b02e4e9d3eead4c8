package script

import (
	"errors"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-csg/pkg/bsp"
	"github.com/Faultbox/midgard-csg/pkg/geommode"
	"github.com/Faultbox/midgard-csg/pkg/math"
	"github.com/Faultbox/midgard-csg/pkg/poly"
	"github.com/Faultbox/midgard-csg/pkg/world"
)

func newEngine() (*Engine, *world.World) {
	w := world.New(world.DefaultOptions(), nil)
	return New(w, geommode.Extrude{Length: 16, Segments: 1}, nil), w
}

// run fails the test on any error.
func run(t *testing.T, e *Engine, source string) string {
	t.Helper()
	out, evalErrs, err := e.Run(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return out
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keyword", "(cube 1 2 3 :hollow true)", `(cube 1 2 3 "__kw_hollow" true)`},
		{"kebab keyword", "(x :align-to-side true)", `(x "__kw_align-to-side" true)`},
		{"comment", "; set up\n(add)", "// set up\n(add)"},
		{"double comment", ";; note", "// note"},
		{"kebab", "(brush-count)", "(brush_count)"},
		{"minus", "(vec3 0 -5 (- 4 2))", "(vec3 0 -5 (- 4 2))"},
		{"string", `(flags b "semi-solid :x")`, `(flags b "semi-solid :x")`},
		{"escaped quote", `"a\"b:c" :d`, `"a\"b:c" "__kw_d"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.in); got != tt.want {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRunEmpty(t *testing.T) {
	e, w := newEngine()
	for _, src := range []string{"", "   \n\t "} {
		out, evalErrs, err := e.Run(src)
		if out != "" || evalErrs != nil || err != nil {
			t.Errorf("Run(%q) = %q, %v, %v", src, out, evalErrs, err)
		}
	}
	if len(w.Brushes()) != 0 {
		t.Error("empty script changed the world")
	}
}

func TestRunAddCube(t *testing.T) {
	e, w := newEngine()
	out := run(t, e, `
; a single room
(cube 256 256 256)
(add)
(rebuild)
`)
	if out != "6" {
		t.Errorf("rebuild = %q, want 6 visible nodes", out)
	}
	if got := len(w.Brushes()); got != 1 {
		t.Errorf("brushes = %d, want 1", got)
	}
	if got := w.Level.Area(); !approx(got, 6*256*256) {
		t.Errorf("area = %v, want %v", got, 6*256*256)
	}
	if out := run(t, e, "(brush-count)"); out != "1" {
		t.Errorf("brush-count = %q, want 1", out)
	}
}

func TestRunSubtract(t *testing.T) {
	e, w := newEngine()
	run(t, e, `
(cube 64 64 64)
(add)
(place (vec3 32 0 0))
(subtract)
`)
	want := 2*64*32 + 2*64*32 + 2*64*64.0
	if got := w.Level.Area(); !approx(got, want) {
		t.Errorf("area = %v, want %v", got, want)
	}
	if !bsp.PointOutside(w.Level, math.Vec3{X: 16}) {
		t.Error("subtracted point is inside")
	}
	if b := w.Builder(); b.Transform.Location.X != 32 {
		t.Errorf("builder at %v, want x = 32", b.Transform.Location)
	}
}

func TestRunExtrude(t *testing.T) {
	e, w := newEngine()
	run(t, e, `
(cube 64 64 64)
(def b (add))
(extrude b :face :top)
`)
	want := 2*64*64 + 4*64*80.0
	if got := w.Level.Area(); !approx(got, want) {
		t.Errorf("area = %v, want %v", got, want)
	}

	run(t, e, "(undo)")
	if got := w.Level.Area(); !approx(got, 6*64*64) {
		t.Errorf("area after undo = %v, want %v", got, 6*64*64)
	}
}

func TestRunFlags(t *testing.T) {
	e, w := newEngine()
	run(t, e, `
(cube 64 64 64)
(def b (add))
(flags b :semisolid)
`)
	b, err := w.Brush(w.Brushes()[0])
	if err != nil {
		t.Fatal(err)
	}
	if b.PolyFlags != poly.FlagSemisolid {
		t.Errorf("flags = %#x, want semisolid", b.PolyFlags)
	}
}

func TestRunUndoRedo(t *testing.T) {
	e, w := newEngine()
	run(t, e, "(cube 64 64 64) (add)")
	if out := run(t, e, "(undo)"); !strings.Contains(out, "Brush Add") {
		t.Errorf("undo = %q, want the add step", out)
	}
	if len(w.Brushes()) != 0 {
		t.Error("brush survived undo")
	}
	run(t, e, "(redo)")
	if len(w.Brushes()) != 1 {
		t.Error("brush missing after redo")
	}
	if out := run(t, e, "(stats)"); !strings.Contains(out, "brushes=1") {
		t.Errorf("stats = %q", out)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "(cube 1 2 3", ""},
		{"undefined", "(pyramid 1 2 3)", ""},
		{"arity", "(cube 1 2)", "expected 3 numbers"},
		{"face", "(cube 64 64 64) (extrude (add) :face :up)", "invalid face"},
		{"missing face", "(extrude)", ":face is required"},
		{"bad flag", "(cube 64 64 64) (flags (add) :glowing)", "glowing"},
		{"not a brush", "(remove 3)", "expected brush"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine()
			_, evalErrs, err := e.Run(tt.src)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			if evalErrs[0].Message == "" {
				t.Error("eval error message should not be empty")
			}
			if tt.want != "" && !strings.Contains(evalErrs[0].Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", evalErrs[0].Error(), tt.want)
			}
		})
	}
}

func TestRunKeepsEditsBeforeError(t *testing.T) {
	e, w := newEngine()
	_, evalErrs, err := e.Run("(cube 64 64 64) (add) (extrude)")
	if err != nil || len(evalErrs) == 0 {
		t.Fatalf("Run() = %v, %v, want an eval error", evalErrs, err)
	}
	if len(w.Brushes()) != 1 {
		t.Errorf("brushes = %d, want the add kept", len(w.Brushes()))
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"Error on line 3: unexpected token", 3, "unexpected token"},
		{"line 12: bad form", 12, "bad form"},
		{"something broke", 0, "something broke"},
	}
	for _, tt := range tests {
		got := parseZygomysError(errors.New(tt.msg))
		if len(got) != 1 || got[0].Line != tt.wantLine || got[0].Message != tt.wantMsg {
			t.Errorf("parseZygomysError(%q) = %+v", tt.msg, got)
		}
	}
}
