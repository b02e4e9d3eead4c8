// Package script drives a world from Lisp source. Scripts set up the
// builder brush, compose it into the level and run geometry-mode
// modifiers, so a level can be reproduced from a text file:
//
//	(cube 256 256 256)
//	(add)
//	(cube 128 128 128 :hollow true)
//	(place (vec3 0 0 128))
//	(subtract)
//	(extrude (add) :face :top :length 32)
//	(rebuild)
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csg/pkg/geommode"
	"github.com/Faultbox/midgard-csg/pkg/world"
)

// EvalError is a parse or runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates scripts against one world. Evaluations are serialized;
// each one runs in a fresh sandboxed environment.
type Engine struct {
	mu      sync.Mutex
	world   *world.World
	extrude geommode.Extrude
	log     *zap.Logger
}

// New returns an engine over w. extrude supplies the length and segment
// count used when a script leaves them out.
func New(w *world.World, extrude geommode.Extrude, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{world: w, extrude: extrude, log: log}
}

// Run evaluates source and returns the printed value of its last form.
//
// Parse and runtime errors in the script come back as EvalErrors with a
// nil error. Edits made before a runtime error stay applied and can be
// undone one by one. A panic inside a builtin is returned as an error.
func (e *Engine) Run(source string) (out string, evalErrs []EvalError, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			out, evalErrs, err = "", nil, fmt.Errorf("panic during evaluation: %v", r)
		}
	}()

	if strings.TrimSpace(source) == "" {
		return "", nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	e.registerBuiltins(env)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return "", parseZygomysError(err), nil
	}
	res, err := env.Run()
	if err != nil {
		errs := parseZygomysError(err)
		e.log.Warn("script: evaluation failed", zap.String("error", errs[0].Error()))
		return "", errs, nil
	}
	if res == nil || res == zygo.SexpNull {
		return "", nil, nil
	}
	return res.SexpString(nil), nil, nil
}

var (
	linePattern      = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError converts an interpreter error into EvalErrors, keeping
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

// kwPrefix marks keywords rewritten by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites source for the interpreter: ; comments become
// // comments, :keyword becomes the string "__kw_keyword" and kebab-case
// identifiers become snake_case. String literals are left alone.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(b))
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
