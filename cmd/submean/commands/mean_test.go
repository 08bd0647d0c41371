package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/submean/cmd/submean/commands"
	"github.com/Sumatoshi-tech/submean/pkg/robustmean"
)

const rowsDocument = `{"shape": [2, 4], "data": [1, 1, 1, 1, 2, 2, 2, 2]}`

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	return path
}

// execute runs the root command with an empty config file and returns
// stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := writeFile(t, "submean.yaml", nil)

	var stdout, stderr bytes.Buffer

	root := commands.NewRootCommand()
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func decodeResult(t *testing.T, out string) commands.Result {
	t.Helper()

	var res commands.Result

	require.NoError(t, json.Unmarshal([]byte(out), &res))

	return res
}

func TestMean_JSONFileAlongAxis(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "rows.json", []byte(rowsDocument))

	out, _, err := execute(t, "", "mean", path, "--axis", "1", "--delta", "0.5", "--format", "json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, []int{2}, res.Shape)
	assert.Equal(t, "float64", res.DType)
	assert.Equal(t, []float64{1, 2}, res.Values)
	assert.Equal(t, 2, res.Groups)
	assert.Equal(t, 8, res.Elements)
	assert.InDelta(t, 0.5, res.Delta, 0)
}

func TestMean_KeepDimsAndDType(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "rows.json", []byte(rowsDocument))

	out, _, err := execute(t, "", "mean", path, "--axis", "-1", "--keepdims", "--dtype", "float32",
		"--delta", "0.5", "--format", "json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, []int{2, 1}, res.Shape)
	assert.Equal(t, "float32", res.DType)
}

func TestMean_BareArrayFromStdin(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "[3, 3, 3, 3, 3]", "mean", "--flatten", "--format", "json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Empty(t, res.Shape)
	assert.Equal(t, []float64{3}, res.Values)
	assert.InDelta(t, robustmean.DefaultFlattenedDelta, res.Delta, 0)
}

func TestMean_FlattenWithKeepDimsFalse(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "[3, 3, 3, 3, 3]", "mean", "--flatten", "--keepdims=false", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, decodeResult(t, out).Values)
}

func TestMean_YAMLDocumentWithMask(t *testing.T) {
	t.Parallel()

	doc := `
shape: [2, 3]
data: [5, 5, 1000, 7, 7, 7]
where: [true, true, false, true, true, true]
`
	path := writeFile(t, "masked.yaml", []byte(doc))

	out, _, err := execute(t, "", "mean", path, "--axis", "1", "--delta", "0.5", "--format", "yaml")
	require.NoError(t, err)

	var res commands.Result

	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, []float64{5, 7}, res.Values)
	assert.Equal(t, 5, res.Elements)
}

func TestMean_LZ4CompressedInput(t *testing.T) {
	t.Parallel()

	var compressed bytes.Buffer

	zw := lz4.NewWriter(&compressed)
	_, err := zw.Write([]byte(rowsDocument))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := writeFile(t, "rows.json.lz4", compressed.Bytes())

	out, _, err := execute(t, "", "mean", path, "--axis", "1", "--delta", "0.5", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, decodeResult(t, out).Values)
}

func TestMean_ComplexDocument(t *testing.T) {
	t.Parallel()

	doc := `{"data": [1, 1, 1, 1], "imag": [-2, -2, -2, -2]}`

	out, _, err := execute(t, doc, "mean", "--delta", "0.5", "--format", "json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, "complex128", res.DType)
	assert.Equal(t, []float64{1}, res.Values)
	assert.Equal(t, []float64{-2}, res.Imag)
}

func TestMean_TableOutput(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "rows.json", []byte(rowsDocument))

	out, _, err := execute(t, "", "mean", path, "--axis", "1", "--delta", "0.5")
	require.NoError(t, err)

	assert.Contains(t, out, "robust mean")
	assert.Contains(t, out, "[1]")
	// Footers are upper-cased by the table style.
	assert.Contains(t, strings.ToLower(out), "8 elements")
}

func TestMean_NonConvergenceWarning(t *testing.T) {
	t.Parallel()

	out, stderr, err := execute(t, "[0, 1, 2, 3, 100]", "mean", "--delta", "0.1", "--max-iterations", "1",
		"--format", "json")
	require.NoError(t, err)

	assert.Equal(t, 1, decodeResult(t, out).NonConverged)
	assert.Contains(t, stderr, "hit the iteration budget")
}

func TestMean_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  error
	}{
		{
			name:  "schema_violation",
			stdin: `{"data": "abc"}`,
			args:  []string{"mean"},
			want:  commands.ErrInvalidDocument,
		},
		{
			name:  "unknown_field",
			stdin: `{"data": [1, 2], "values": [3]}`,
			args:  []string{"mean"},
			want:  commands.ErrInvalidDocument,
		},
		{
			name:  "shape_does_not_fit",
			stdin: `{"shape": [3], "data": [1, 2]}`,
			args:  []string{"mean"},
			want:  commands.ErrInvalidDocument,
		},
		{
			name:  "too_few_samples",
			stdin: `[1, 2]`,
			args:  []string{"mean"},
			want:  robustmean.ErrInsufficientSampleSize,
		},
		{
			name:  "flatten_with_axis",
			stdin: `[1, 2, 3, 4, 5, 6, 7, 8]`,
			args:  []string{"mean", "--flatten", "--axis", "0"},
			want:  robustmean.ErrInvalidParameter,
		},
		{
			name:  "flatten_with_keepdims",
			stdin: `[1, 2, 3, 4, 5, 6, 7, 8]`,
			args:  []string{"mean", "--flatten", "--keepdims"},
			want:  robustmean.ErrInvalidParameter,
		},
		{
			name:  "fractional_integer_data",
			stdin: `{"dtype": "int16", "data": [1.5, 2, 3, 4]}`,
			args:  []string{"mean", "--delta", "0.5"},
			want:  commands.ErrInvalidDocument,
		},
		{
			name:  "bad_format",
			stdin: `[1, 2, 3, 4, 5, 6, 7, 8]`,
			args:  []string{"mean", "--delta", "0.5", "--format", "xml"},
			want:  commands.ErrUnknownFormat,
		},
		{
			name:  "complex_to_real",
			stdin: `{"data": [1, 1, 1], "imag": [1, 1, 1]}`,
			args:  []string{"mean", "--delta", "0.5", "--dtype", "float64"},
			want:  robustmean.ErrTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := execute(t, tt.stdin, tt.args...)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
