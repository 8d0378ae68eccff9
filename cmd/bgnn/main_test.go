package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/bgnn/bgnn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// writeDataset writes a 30 node ring with two features, one of them categorical.
func writeDataset(t *testing.T, dir string) {
	t.Helper()
	const n = 30
	var features, targets, edges strings.Builder
	features.WriteString("x,category\n")
	targets.WriteString("y\n")
	edges.WriteString("src,dst\n")
	for i := 0; i < n; i++ {
		x := float64(i) / n
		cat := i % 3
		fmt.Fprintf(&features, "%g,%d\n", x, cat)
		fmt.Fprintf(&targets, "%g\n", 2*x+float64(cat))
		fmt.Fprintf(&edges, "%d,%d\n", i, (i+1)%n)
	}
	var train, val, test []string
	for i := 0; i < n; i++ {
		switch i % 5 {
		case 0, 1, 2:
			train = append(train, fmt.Sprint(i))
		case 3:
			val = append(val, fmt.Sprint(i))
		default:
			test = append(test, fmt.Sprint(i))
		}
	}
	masks := fmt.Sprintf("train: [%s]\nval: [%s]\ntest: [%s]\n",
		strings.Join(train, ", "), strings.Join(val, ", "), strings.Join(test, ", "))

	for name, content := range map[string]string{
		"features.csv": features.String(),
		"targets.csv":  targets.String(),
		"edges.csv":    edges.String(),
		"masks.yaml":   masks,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

const smallRunConfig = `
data:
  categorical_features: [1]
model:
  trees_per_epoch: 2
  backprop_per_epoch: 3
  gbdt_depth: 3
network:
  hidden_dim: 8
fit:
  num_epochs: 3
  patience: 0
output:
  history: history.json
  plot: loss.png
  metrics: bgnn.prom
`

func TestFitCommand(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	cfgPath := filepath.Join(dir, "bgnn.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(smallRunConfig), 0o644))

	cmd := cliParser()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"fit", "--config", cfgPath, "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(dir, "history.json"))
	require.NoError(t, err)
	var history bgnn.History
	require.NoError(t, json.Unmarshal(data, &history))
	assert.Equal(t, []string{"loss", "rmsle", "mae", "r2"}, history.Names())
	assert.Equal(t, "loss", history.MetricName)
	assert.NotZero(t, history.Len("loss"))

	assert.FileExists(t, filepath.Join(dir, "loss.png"))
	prom, err := os.ReadFile(filepath.Join(dir, "bgnn.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "bgnn_epochs_total")
	assert.Contains(t, string(prom), "run_id=")
}

func TestFitCommandMissingConfig(t *testing.T) {
	cmd := cliParser()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"fit", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	cmd := cliParser()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, fmt.Sprintf("bgnn v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch), out.String())
}

func TestInitCommandWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bgnn.yaml")
	cmd := cliParser()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", path})
	require.NoError(t, cmd.Execute())

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig().Model, cfg.Model)
	assert.Equal(t, "minmax", cfg.Preprocessing.Normalize)
}

func TestLoadRunConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bgnn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  task: classification\n"), 0o644))

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, bgnn.TaskClassification, cfg.Model.Task)
	assert.Equal(t, 10, cfg.Model.TreesPerEpoch)
	assert.Equal(t, "features.csv", cfg.Data.Features)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "edges.csv"), cfg.resolve(cfg.Data.Edges))
}

func TestLoadRunConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad normalize", "preprocessing:\n  normalize: zscore\n"},
		{"bad task", "model:\n  task: ranking\n"},
		{"bad direction", "fit:\n  direction: sideways\n"},
		{"no hidden units", "network:\n  hidden_dim: 0\n"},
		{"missing features", "data:\n  features: \"\"\n"},
		{"not yaml", "model: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bgnn.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := LoadRunConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestReadMatrixCSV(t *testing.T) {
	m, err := readMatrixCSV(strings.NewReader("a,b\n1,NA\n, 3.5\n"), true)
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1.0, m.At(0, 0))
	assert.True(t, math.IsNaN(m.At(0, 1)))
	assert.True(t, math.IsNaN(m.At(1, 0)))
	assert.Equal(t, 3.5, m.At(1, 1))

	_, err = readMatrixCSV(strings.NewReader("1,x\n"), false)
	assert.Error(t, err)
	_, err = readMatrixCSV(strings.NewReader("a,b\n"), true)
	assert.Error(t, err)
}

func TestReadEdgesCSV(t *testing.T) {
	edges, err := readEdgesCSV(strings.NewReader("0,1\n1, 2\n"), false)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
	assert.Equal(t, 2, edges[1].Dst)

	_, err = readEdgesCSV(strings.NewReader("0,a\n"), false)
	assert.Error(t, err)
}

func TestPreprocessKeepsRawFeaturesForTrees(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0.5, 0,
		math.NaN(), 1,
		1.5, 0,
		2.5, 1,
	})
	Y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	data := bgnn.Dataset{X: X, Y: Y, Masks: bgnn.Masks{Train: []int{0, 1, 2}, Val: []int{3}, Test: []int{3}}}

	out, err := preprocess(PreprocessingConfig{ReplaceNA: true, Normalize: "minmax", EncodeCategorical: true}, []int{1}, data)
	require.NoError(t, err)

	assert.Same(t, X, out.OriginalX)
	assert.Equal(t, []int{1}, out.CategoricalFeatures)
	assert.True(t, math.IsNaN(out.OriginalX.At(1, 0)), "trees keep missing values")
	r, c := out.X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.False(t, math.IsNaN(out.X.At(i, j)))
		}
	}
	// train rows are scaled into [0, 1]
	for _, i := range data.Masks.Train {
		assert.GreaterOrEqual(t, out.X.At(i, 0), 0.0)
		assert.LessOrEqual(t, out.X.At(i, 0), 1.0)
	}
}
