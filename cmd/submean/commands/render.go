package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/submean/pkg/ndarray"
	"github.com/Sumatoshi-tech/submean/pkg/robustmean"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const yamlIndent = 2

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

// Result is the rendered outcome of one reduction.
type Result struct {
	Shape        []int     `json:"shape"          yaml:"shape"`
	DType        string    `json:"dtype"          yaml:"dtype"`
	Values       []float64 `json:"values"         yaml:"values"`
	Imag         []float64 `json:"imag,omitempty" yaml:"imag,omitempty"`
	Delta        float64   `json:"delta"          yaml:"delta"`
	Groups       int       `json:"groups"         yaml:"groups"`
	Elements     int       `json:"elements"       yaml:"elements"`
	NonConverged int       `json:"nonconverged"   yaml:"nonconverged"`
}

// MarshalJSON writes NaN and ±Inf values as the strings "NaN", "+Inf" and
// "-Inf".
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		resultAlias: (*resultAlias)(&r),
		Values:      toJSONFloats(r.Values),
		Imag:        toJSONFloats(r.Imag),
	})
}

// UnmarshalJSON accepts values as numbers or as the strings MarshalJSON
// writes for non-finite values.
func (r *Result) UnmarshalJSON(data []byte) error {
	aux := resultJSON{resultAlias: (*resultAlias)(r)}

	err := json.Unmarshal(data, &aux)
	if err != nil {
		return err
	}

	r.Values = fromJSONFloats(aux.Values)
	r.Imag = fromJSONFloats(aux.Imag)

	return nil
}

type resultAlias Result

type resultJSON struct {
	*resultAlias

	Values []jsonFloat `json:"values"`
	Imag   []jsonFloat `json:"imag,omitempty"`
}

// jsonFloat is a float64 that survives JSON when it is not finite.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return json.Marshal(strconv.FormatFloat(v, 'g', -1, 64))
	}

	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	var text string

	if json.Unmarshal(data, &text) == nil {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("decode value %q: %w", text, err)
		}

		*f = jsonFloat(v)

		return nil
	}

	var v float64

	err := json.Unmarshal(data, &v)
	if err != nil {
		return err
	}

	*f = jsonFloat(v)

	return nil
}

func toJSONFloats(values []float64) []jsonFloat {
	if values == nil {
		return nil
	}

	out := make([]jsonFloat, len(values))
	for i, v := range values {
		out[i] = jsonFloat(v)
	}

	return out
}

func fromJSONFloats(values []jsonFloat) []float64 {
	if values == nil {
		return nil
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}

	return out
}

// NewResult collects the values of out and the call diagnostics.
func NewResult(out *ndarray.Array, delta float64, diag robustmean.Diagnostics) (*Result, error) {
	res := &Result{
		Shape:        out.Shape(),
		DType:        out.DType().String(),
		Delta:        delta,
		Groups:       diag.Groups,
		Elements:     diag.Elements,
		NonConverged: diag.NonConverged,
	}

	if out.DType().IsComplex() {
		values := out.Complex128s()
		res.Values = make([]float64, len(values))
		res.Imag = make([]float64, len(values))

		for i, v := range values {
			res.Values[i] = real(v)
			res.Imag[i] = imag(v)
		}

		return res, nil
	}

	values, err := out.Float64s()
	if err != nil {
		return nil, err
	}

	res.Values = values

	return res, nil
}

// Render writes res to w in the given format.
func Render(w io.Writer, res *Result, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(res)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(res)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case FormatTable:
		_, err := fmt.Fprintln(w, renderTable(res))

		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderTable(res *Result) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("robust mean  %s%v  δ=%g", res.DType, res.Shape, res.Delta))
	tbl.AppendHeader(table.Row{"#", "index", "value"})

	coord := make([]int, len(res.Shape))

	for i, v := range res.Values {
		ndarray.Unravel(i, res.Shape, coord)

		value := strconv.FormatFloat(v, 'g', -1, 64)
		if res.Imag != nil {
			value = fmt.Sprint(complex(v, res.Imag[i]))
		}

		tbl.AppendRow(table.Row{i, fmt.Sprint(coord), value})
	}

	tbl.AppendFooter(table.Row{
		"",
		humanize.Comma(int64(res.Groups)) + " groups",
		humanize.Comma(int64(res.Elements)) + " elements",
	})

	return tbl.Render()
}

// warnNonConverged prints a status line when some groups exhausted their
// iteration budget. Their values are the last candidates and still usable.
func warnNonConverged(w io.Writer, res *Result) {
	if res.NonConverged == 0 {
		return
	}

	color.New(color.FgYellow).Fprintf(w, "warning: %s of %s groups hit the iteration budget\n",
		humanize.Comma(int64(res.NonConverged)), humanize.Comma(int64(res.Groups)))
}
