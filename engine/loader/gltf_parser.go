package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errGLBTooSmall        = errors.New("GLB file too small")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errAccessorRange      = errors.New("accessor out of range")
	errSparseAccessor     = errors.New("sparse accessors are not supported")
	errAccessorLayout     = errors.New("unsupported accessor layout")
)

// gltfParser loads a glTF/GLB document and its buffers and reads typed accessor data.
type gltfParser struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

func newGLTFParser() *gltfParser {
	return &gltfParser{}
}

// parse loads a .gltf or .glb file. GLB is detected by extension or magic number.
func (p *gltfParser) parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic)
	return p.parseBytes(data, isGLB)
}

// parseReader parses a document from a stream. External buffer URIs resolve against baseDir.
func (p *gltfParser) parseReader(r io.Reader, baseDir string, isGLB bool) error {
	p.baseDir = baseDir
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	return p.parseBytes(data, isGLB)
}

func (p *gltfParser) parseBytes(data []byte, isGLB bool) error {
	jsonData := data
	if isGLB {
		var err error
		if jsonData, p.glbBinaryChunk, err = splitGLB(data); err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < 12 {
		return nil, nil, errGLBTooSmall
	}

	r := bytes.NewReader(data)
	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, nil, errInvalidGLBVersion
	}

	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, nil, fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonChunk = body
		case gltfGLBChunkBIN:
			binChunk = body
		}
	}

	if jsonChunk == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonChunk, binChunk, nil
}

// loadBuffers loads all buffer data (from URIs, embedded data, or the GLB binary chunk).
func (p *gltfParser) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			data, err := os.ReadFile(filepath.Join(p.baseDir, buf.URI))
			if err != nil {
				return fmt.Errorf("buffer %d: failed to load %q: %w", i, buf.URI, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// decodeDataURI decodes a base64 data URI.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errInvalidBufferURI
	}
	if !strings.Contains(header, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// accessorElements returns one byte slice per accessor element, honoring the view stride.
func (p *gltfParser) accessorElements(index int) ([][]byte, *gltfAccessor, error) {
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, errAccessorRange)
	}
	acc := &p.document.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, errSparseAccessor)
	}
	if acc.BufferView == nil || *acc.BufferView >= len(p.document.BufferViews) {
		return nil, nil, fmt.Errorf("accessor %d has no usable bufferView", index)
	}

	bv := &p.document.BufferViews[*acc.BufferView]
	if bv.Buffer >= len(p.document.Buffers) {
		return nil, nil, fmt.Errorf("bufferView %d: %w", *acc.BufferView, errAccessorRange)
	}
	data := p.document.Buffers[bv.Buffer].Data

	elemSize, ok := gltfElementSizes[gltfLayout{acc.Type, acc.ComponentType}]
	if !ok {
		return nil, nil, fmt.Errorf("accessor %d: %w: %s/%d", index, errAccessorLayout, acc.Type, acc.ComponentType)
	}
	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	base := bv.ByteOffset + acc.ByteOffset
	out := make([][]byte, acc.Count)
	for i := range out {
		start := base + i*stride
		if start+elemSize > len(data) {
			return nil, nil, fmt.Errorf("accessor %d element %d: %w", index, i, errAccessorRange)
		}
		out[i] = data[start : start+elemSize]
	}
	return out, acc, nil
}

// readVec3 reads a VEC3 FLOAT accessor.
func (p *gltfParser) readVec3(index int) ([]mgl32.Vec3, error) {
	elems, acc, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeVec3 {
		return nil, fmt.Errorf("accessor %d is %s, want VEC3", index, acc.Type)
	}
	out := make([]mgl32.Vec3, len(elems))
	for i, e := range elems {
		for c := 0; c < 3; c++ {
			out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(e[c*4:]))
		}
	}
	return out, nil
}

// readIndices reads a SCALAR unsigned index accessor, widening to uint32.
func (p *gltfParser) readIndices(index int) ([]uint32, error) {
	elems, acc, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor %d is not SCALAR: type=%s", index, acc.Type)
	}
	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch len(e) {
		case 1:
			out[i] = uint32(e[0])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		default:
			out[i] = binary.LittleEndian.Uint32(e)
		}
	}
	return out, nil
}
