package commands

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/submean/pkg/dtype"
	"github.com/Sumatoshi-tech/submean/pkg/ndarray"
)

// ErrInvalidDocument is returned when an input document fails schema
// validation or describes an inconsistent array.
var ErrInvalidDocument = errors.New("invalid input document")

const (
	extLZ4  = ".lz4"
	extYAML = ".yaml"
	extYML  = ".yml"
)

//go:embed document.schema.json
var documentSchema []byte

// Document is an array on the wire: flat row-major data plus its shape, an
// optional element type, optional imaginary parts and an optional mask.
type Document struct {
	Shape      []int     `json:"shape,omitempty"       yaml:"shape,omitempty"`
	DType      string    `json:"dtype,omitempty"       yaml:"dtype,omitempty"`
	Data       []float64 `json:"data"                  yaml:"data"`
	Imag       []float64 `json:"imag,omitempty"        yaml:"imag,omitempty"`
	Where      []bool    `json:"where,omitempty"       yaml:"where,omitempty"`
	WhereShape []int     `json:"where_shape,omitempty" yaml:"where_shape,omitempty"`
}

// ReadDocument decodes a document from r. The name selects decoding: a
// ".lz4" suffix is decompressed as an LZ4 frame, ".yaml"/".yml" is YAML, and
// anything else is sniffed (JSON when it starts with '{' or '[').
// A bare array of numbers is a one-dimensional document.
func ReadDocument(r io.Reader, name string) (*Document, error) {
	if strings.HasSuffix(name, extLZ4) {
		r = lz4.NewReader(r)
		name = strings.TrimSuffix(name, extLZ4)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	if isYAML(name, raw) {
		return decodeYAML(raw)
	}

	return decodeJSON(raw)
}

func isYAML(name string, raw []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case extYAML, extYML:
		return true
	case ".json":
		return false
	}

	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[')
}

func decodeJSON(raw []byte) (*Document, error) {
	err := validateDocument(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		var values []float64

		err = json.Unmarshal(raw, &values)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		return &Document{Data: values}, nil
	}

	var doc Document

	err = json.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &doc, nil
}

func decodeYAML(raw []byte) (*Document, error) {
	var generic any

	err := yaml.Unmarshal(raw, &generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	err = validateDocument(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return nil, err
	}

	if _, ok := generic.([]any); ok {
		var values []float64

		err = yaml.Unmarshal(raw, &values)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		return &Document{Data: values}, nil
	}

	var doc Document

	err = yaml.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &doc, nil
}

func validateDocument(input gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(documentSchema), input)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
}

// Array builds the array described by the document. Without a dtype, a
// document with imaginary parts is complex128 and any other is float64.
// Values the dtype cannot hold, such as 1.5 for int16, are rejected.
func (d *Document) Array() (*ndarray.Array, error) {
	dt, err := d.elementType()
	if err != nil {
		return nil, err
	}

	shape := d.Shape
	if shape == nil {
		shape = []int{len(d.Data)}
	}

	arr, err := ndarray.Zeros(dt, shape...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if arr.Size() != len(d.Data) {
		return nil, fmt.Errorf("%w: %d values do not fill shape %v", ErrInvalidDocument, len(d.Data), shape)
	}

	if d.Imag != nil && len(d.Imag) != len(d.Data) {
		return nil, fmt.Errorf("%w: %d imaginary parts for %d values", ErrInvalidDocument, len(d.Imag), len(d.Data))
	}

	for i, v := range d.Data {
		if !dtype.Representable(dt, v) || (d.Imag != nil && !dtype.Representable(dt, d.Imag[i])) {
			return nil, fmt.Errorf("%w: value %d does not fit %s", ErrInvalidDocument, i, dt)
		}

		if d.Imag != nil {
			arr.SetComplex128(i, complex(v, d.Imag[i]))

			continue
		}

		arr.SetFloat64(i, v)
	}

	return arr, nil
}

// Mask builds the where mask, or nil when the document has none. Without
// where_shape the mask takes the array's shape.
func (d *Document) Mask() (*ndarray.Mask, error) {
	if d.Where == nil {
		return nil, nil //nolint:nilnil // no mask is a valid answer.
	}

	shape := d.WhereShape
	if shape == nil {
		shape = d.Shape
	}

	mask, err := ndarray.NewMask(d.Where, shape...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return mask, nil
}

func (d *Document) elementType() (dtype.DType, error) {
	if d.DType == "" {
		if d.Imag != nil {
			return dtype.Complex128, nil
		}

		return dtype.Float64, nil
	}

	dt, err := dtype.Parse(d.DType)
	if err != nil {
		return dtype.Invalid, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if d.Imag != nil && !dt.IsComplex() {
		return dtype.Invalid, fmt.Errorf("%w: imaginary parts given for %s", ErrInvalidDocument, dt)
	}

	return dt, nil
}
