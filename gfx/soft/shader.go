package soft

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/plus3/softbody/gfx"
)

var (
	mainRe    = regexp.MustCompile(`\bvoid\s+main\s*\(\s*(void)?\s*\)`)
	varyingRe = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?(?:flat\s+|smooth\s+)?(in|out)\s+(\w+)\s+(\w+)\s*;`)
)

// stage is a checked shader stage with its declared interface.
type stage struct {
	inputs  map[string]string
	outputs map[string]string
}

type program struct {
	name     string
	vertex   stage
	fragment stage
}

// compileStage performs the structural checks a GLSL front end would reject
// first: a #version directive, a main entry point and balanced braces.
func compileStage(name string, st gfx.Stage, src string) (stage, error) {
	fail := func(format string, args ...any) (stage, error) {
		return stage{}, &gfx.CompileError{Shader: name, Stage: st, Log: fmt.Sprintf(format, args...)}
	}

	body := stripComments(src)
	if strings.TrimSpace(body) == "" {
		return fail("empty source")
	}
	if !strings.HasPrefix(strings.TrimSpace(body), "#version") {
		return fail("missing #version directive")
	}
	if !mainRe.MatchString(body) {
		return fail("no entry point 'void main()'")
	}
	if open, closed := strings.Count(body, "{"), strings.Count(body, "}"); open != closed {
		return fail("unbalanced braces: %d '{' vs %d '}'", open, closed)
	}

	s := stage{inputs: map[string]string{}, outputs: map[string]string{}}
	for _, m := range varyingRe.FindAllStringSubmatch(body, -1) {
		qualifier, typ, ident := m[1], m[2], m[3]
		if qualifier == "in" {
			s.inputs[ident] = typ
		} else {
			s.outputs[ident] = typ
		}
	}
	return s, nil
}

// link matches every fragment input against a vertex output of the same type.
func link(name string, vs, fs stage) error {
	for ident, typ := range fs.inputs {
		out, ok := vs.outputs[ident]
		if !ok {
			return &gfx.LinkError{Shader: name, Log: fmt.Sprintf("fragment input %q has no matching vertex output", ident)}
		}
		if out != typ {
			return &gfx.LinkError{Shader: name, Log: fmt.Sprintf("varying %q is %s in vertex stage but %s in fragment stage", ident, out, typ)}
		}
	}
	return nil
}

func stripComments(src string) string {
	var b strings.Builder
	for i := 0; i < len(src); i++ {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				b.WriteByte('\n')
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
		default:
			b.WriteByte(src[i])
		}
	}
	return b.String()
}
