// Package objfile reads the subset of Wavefront OBJ used for meshes:
// positions, normals and faces. Texture coordinates are accepted and dropped.
// Polygons with more than three corners are fan-triangulated, so Corners
// always holds whole triangles.
package objfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// NoIndex marks a corner without a normal reference.
const NoIndex = -1

// Corner references a position and optionally a normal, zero-based.
type Corner struct {
	Vertex int
	Normal int
}

type File struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Corners   []Corner
}

// Triangles is the number of triangles described by Corners.
func (f *File) Triangles() int {
	return len(f.Corners) / 3
}

// ParseError reports malformed input at a line. Line is 0 for errors that
// concern the whole file. Err holds the underlying cause when there is one.
type ParseError struct {
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

var ErrNoFaces = errors.New("no faces")

// Load opens and parses the file at path. Open errors are returned wrapped,
// so errors.Is(err, fs.ErrNotExist) works for missing files.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mesh: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

func Parse(r io.Reader, name string) (*File, error) {
	p := parser{file: &File{Name: name}}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: name, Line: p.line, Msg: err.Error(), Err: err}
	}
	if len(p.file.Corners) == 0 {
		return nil, &ParseError{Path: name, Msg: ErrNoFaces.Error(), Err: ErrNoFaces}
	}
	return p.file, nil
}

type parser struct {
	file *File
	line int
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Path: p.file.Name, Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(text string) error {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "v":
		v, err := p.parseVec3(fields[1:])
		if err != nil {
			return err
		}
		p.file.Positions = append(p.file.Positions, v)
	case "vn":
		v, err := p.parseVec3(fields[1:])
		if err != nil {
			return err
		}
		p.file.Normals = append(p.file.Normals, v)
	case "f":
		return p.parseFace(fields[1:])
	}
	// vt, o, g, s, usemtl, mtllib and anything else carry nothing we keep
	return nil
}

func (p *parser) parseVec3(fields []string) (mgl32.Vec3, error) {
	if len(fields) < 3 {
		return mgl32.Vec3{}, p.errorf("expected 3 coordinates, got %d", len(fields))
	}
	var v mgl32.Vec3
	for i := range 3 {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return mgl32.Vec3{}, p.errorf("bad coordinate %q", fields[i])
		}
		v[i] = float32(f)
	}
	return v, nil
}

func (p *parser) parseFace(fields []string) error {
	if len(fields) < 3 {
		return p.errorf("face needs at least 3 corners, got %d", len(fields))
	}
	corners := make([]Corner, len(fields))
	for i, field := range fields {
		c, err := p.parseCorner(field)
		if err != nil {
			return err
		}
		corners[i] = c
	}
	for i := 1; i+1 < len(corners); i++ {
		p.file.Corners = append(p.file.Corners, corners[0], corners[i], corners[i+1])
	}
	return nil
}

// parseCorner accepts v, v/vt, v//vn and v/vt/vn.
func (p *parser) parseCorner(field string) (Corner, error) {
	parts := strings.Split(field, "/")
	if len(parts) > 3 {
		return Corner{}, p.errorf("bad face corner %q", field)
	}
	vertex, err := p.resolve(parts[0], len(p.file.Positions), "vertex")
	if err != nil {
		return Corner{}, err
	}
	c := Corner{Vertex: vertex, Normal: NoIndex}
	if len(parts) == 3 && parts[2] != "" {
		c.Normal, err = p.resolve(parts[2], len(p.file.Normals), "normal")
		if err != nil {
			return Corner{}, err
		}
	}
	return c, nil
}

// resolve turns a one-based or negative relative index into a zero-based one.
func (p *parser) resolve(s string, count int, kind string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, p.errorf("bad %s index %q", kind, s)
	}
	idx := n - 1
	if n < 0 {
		idx = count + n
	}
	if n == 0 || idx < 0 || idx >= count {
		return 0, p.errorf("%s index %d out of range (%d defined)", kind, n, count)
	}
	return idx, nil
}
