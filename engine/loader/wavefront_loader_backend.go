package loader

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// wavefrontLoaderBackend imports Wavefront .obj files with their .mtl material libraries.
// Faces with more than three vertices are fan-triangulated. One ImportedMesh is produced per
// (object, material) run.
type wavefrontLoaderBackend struct {
	logger log.Logger
}

var _ loaderBackend = &wavefrontLoaderBackend{}

func newWavefrontLoaderBackend() *wavefrontLoaderBackend {
	return &wavefrontLoaderBackend{logger: log.New("loader")}
}

// wavefrontReader is the per-file parse state.
type wavefrontReader struct {
	logger  log.Logger
	baseDir string

	positions []mgl32.Vec3
	normals   []mgl32.Vec3

	materials      []common.ImportedMaterial
	matNameToIndex map[string]int
	curMaterial    int
	objectName     string

	out     *model.ImportedModel
	current *model.ImportedMesh
	// vertex cache of the current mesh keyed by "v/vn" token
	remap map[[2]int]uint32
}

func (b *wavefrontLoaderBackend) Load(path string) (*model.ImportedModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return b.LoadReader(filepath.Base(path), f, filepath.Dir(path))
}

func (b *wavefrontLoaderBackend) LoadReader(name string, r io.Reader, baseDir string) (*model.ImportedModel, error) {
	wr := &wavefrontReader{
		logger:         b.logger,
		baseDir:        baseDir,
		matNameToIndex: make(map[string]int),
		curMaterial:    -1,
		out:            &model.ImportedModel{Name: strings.TrimSuffix(name, filepath.Ext(name))},
	}
	if err := wr.parse(name, r); err != nil {
		return nil, err
	}
	wr.flush()
	wr.out.Materials = wr.materials
	return wr.out, nil
}

func (r *wavefrontReader) parse(name string, in io.Reader) error {
	lineNum := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}

		var err error
		switch tokens[0] {
		case "mtllib":
			for _, lib := range tokens[1:] {
				if err = r.parseMaterialLibrary(filepath.Join(r.baseDir, lib)); err != nil {
					break
				}
			}
		case "usemtl":
			if len(tokens) != 2 {
				err = fmt.Errorf(`unsupported syntax for "usemtl"; expected 1 argument; got %d`, len(tokens)-1)
				break
			}
			idx, ok := r.matNameToIndex[tokens[1]]
			if !ok {
				err = fmt.Errorf(`undefined material with name %q`, tokens[1])
				break
			}
			if idx != r.curMaterial {
				r.flush()
				r.curMaterial = idx
			}
		case "v":
			var v mgl32.Vec3
			if v, err = parseVec3(tokens); err == nil {
				r.positions = append(r.positions, v)
			}
		case "vn":
			var v mgl32.Vec3
			if v, err = parseVec3(tokens); err == nil {
				r.normals = append(r.normals, v)
			}
		case "g", "o":
			r.flush()
			r.objectName = strings.Join(tokens[1:], " ")
		case "f":
			err = r.parseFace(tokens)
		}
		if err != nil {
			return fmt.Errorf("[%s: %d] %w", name, lineNum, err)
		}
	}
	return scanner.Err()
}

// flush closes the mesh being assembled, dropping it when it has no faces.
func (r *wavefrontReader) flush() {
	if r.current == nil {
		return
	}
	if len(r.current.Indices) == 0 {
		r.logger.Warningf("dropping mesh %q as it contains no polygons", r.current.Name)
	} else {
		r.out.Meshes = append(r.out.Meshes, *r.current)
	}
	r.current = nil
	r.remap = nil
}

// parseFace supports v, v/vt, v//vn and v/vt/vn vertex references with 1-based or negative indices.
func (r *wavefrontReader) parseFace(tokens []string) error {
	if len(tokens) < 4 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(tokens)-1)
	}
	if r.current == nil {
		r.current = &model.ImportedMesh{
			Name:          common.Coalesce(r.objectName, "default"),
			MaterialIndex: r.curMaterial,
		}
		r.remap = make(map[[2]int]uint32)
	}

	corners := make([]uint32, 0, len(tokens)-1)
	hasNormals := true
	for arg, tok := range tokens[1:] {
		parts := strings.Split(tok, "/")
		vi, err := selectFaceCoordIndex(parts[0], len(r.positions))
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %w", arg, err)
		}
		ni := -1
		if len(parts) > 2 && parts[2] != "" {
			if ni, err = selectFaceCoordIndex(parts[2], len(r.normals)); err != nil {
				return fmt.Errorf("could not parse normal coord for face argument %d: %w", arg, err)
			}
		} else {
			hasNormals = false
		}

		key := [2]int{vi, ni}
		idx, ok := r.remap[key]
		if !ok {
			idx = uint32(len(r.current.Positions))
			r.current.Positions = append(r.current.Positions, r.positions[vi])
			if ni >= 0 {
				r.current.Normals = append(r.current.Normals, r.normals[ni])
			}
			r.remap[key] = idx
		}
		corners = append(corners, idx)
	}
	if !hasNormals || len(r.current.Normals) != len(r.current.Positions) {
		// Mixed or missing normals: let the mesh derive flat normals.
		r.current.Normals = nil
	}

	for i := 1; i+1 < len(corners); i++ {
		r.current.Indices = append(r.current.Indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

// parseMaterialLibrary reads Kd (diffuse), d/Tr (dissolve), Ns (shininess) and Pm/Pr (PBR extension) statements.
func (r *wavefrontReader) parseMaterialLibrary(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open material library: %w", err)
	}
	defer f.Close()
	r.logger.Infof("parsing material library %q", path)

	var cur *common.ImportedMaterial
	lineNum := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}
		if tokens[0] == "newmtl" {
			if len(tokens) != 2 {
				return fmt.Errorf(`[%s: %d] unsupported syntax for "newmtl"; expected 1 argument; got %d`, path, lineNum, len(tokens)-1)
			}
			if _, exists := r.matNameToIndex[tokens[1]]; exists {
				return fmt.Errorf(`[%s: %d] material %q already defined`, path, lineNum, tokens[1])
			}
			m := common.DefaultImportedMaterial()
			m.Name = tokens[1]
			r.materials = append(r.materials, m)
			r.matNameToIndex[m.Name] = len(r.materials) - 1
			cur = &r.materials[len(r.materials)-1]
			continue
		}
		if cur == nil {
			return fmt.Errorf(`[%s: %d] got %q without a "newmtl"`, path, lineNum, tokens[0])
		}

		var v float32
		switch tokens[0] {
		case "Kd":
			var kd mgl32.Vec3
			if kd, err = parseVec3(tokens); err == nil {
				cur.BaseColor = [4]float32{kd[0], kd[1], kd[2], cur.BaseColor[3]}
			}
		case "d":
			if v, err = parseFloat32(tokens); err == nil {
				cur.BaseColor[3] = v
			}
		case "Tr":
			if v, err = parseFloat32(tokens); err == nil {
				cur.BaseColor[3] = 1 - v
			}
		case "Ns":
			if v, err = parseFloat32(tokens); err == nil {
				cur.Roughness = shininessToRoughness(v)
			}
		case "Pr":
			if v, err = parseFloat32(tokens); err == nil {
				cur.Roughness = v
			}
		case "Pm":
			if v, err = parseFloat32(tokens); err == nil {
				cur.Metallic = v
			}
		}
		if err != nil {
			return fmt.Errorf("[%s: %d] %w", path, lineNum, err)
		}
	}
	return scanner.Err()
}

// shininessToRoughness maps a Phong exponent in [0, 1000] to a roughness in [0, 1].
func shininessToRoughness(ns float32) float32 {
	ns = max(0, min(ns, 1000))
	return 1 - float32(math.Sqrt(float64(ns)/1000))
}

// selectFaceCoordIndex converts a 1-based (or negative, end-relative) index into a slice offset.
func selectFaceCoordIndex(token string, listLen int) (int, error) {
	index, err := strconv.Atoi(token)
	if err != nil {
		return -1, err
	}
	offset := index - 1
	if index < 0 {
		offset = listLen + index
	}
	if offset < 0 || offset >= listLen {
		return -1, fmt.Errorf("index %d out of bounds", index)
	}
	return offset, nil
}

// parseFloat32 parses the single scalar argument of a statement.
func parseFloat32(tokens []string) (float32, error) {
	if len(tokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for %q; expected 1 argument; got %d`, tokens[0], len(tokens)-1)
	}
	v, err := strconv.ParseFloat(tokens[1], 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// parseVec3 parses the three scalar arguments of a statement.
func parseVec3(tokens []string) (mgl32.Vec3, error) {
	if len(tokens) < 4 {
		return mgl32.Vec3{}, fmt.Errorf(`unsupported syntax for %q; expected 3 arguments; got %d`, tokens[0], len(tokens)-1)
	}
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(tokens[i+1], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
