package main

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/bgnn/bgnn"
	"github.com/YuminosukeSato/bgnn/gnn"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// missing value spellings in CSV cells
var missingValues = map[string]bool{"": true, "na": true, "nan": true, "null": true}

// readMatrixCSV parses a numeric CSV. Missing cells become NaN.
func readMatrixCSV(r io.Reader, header bool) (*mat.Dense, error) {
	records, err := readRecords(r, header)
	if err != nil {
		return nil, err
	}
	rows, cols := len(records), len(records[0])
	data := make([]float64, 0, rows*cols)
	for i, rec := range records {
		for j, cell := range rec {
			cell = strings.TrimSpace(cell)
			if missingValues[strings.ToLower(cell)] {
				data = append(data, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %d", i+1, j+1)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(rows, cols, data), nil
}

func readRecords(r io.Reader, header bool) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if header && len(records) > 0 {
		records = records[1:]
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no data rows")
	}
	return records, nil
}

// readEdgesCSV parses "src,dst" pairs of node indices.
func readEdgesCSV(r io.Reader, header bool) ([]gnn.Edge, error) {
	records, err := readRecords(r, header)
	if err != nil {
		return nil, err
	}
	edges := make([]gnn.Edge, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, errors.NewValidationError("edges", "row needs src and dst", i+1)
		}
		src, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "edge row %d", i+1)
		}
		dst, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "edge row %d", i+1)
		}
		edges = append(edges, gnn.Edge{Src: src, Dst: dst})
	}
	return edges, nil
}

func readMasks(r io.Reader) (bgnn.Masks, error) {
	var m bgnn.Masks
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return m, errors.Wrap(err, "parse masks")
	}
	return m, nil
}

func openWith[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return v, errors.Wrapf(err, "read %s", path)
	}
	return v, nil
}

// inputs is everything loaded from the files of a RunConfig.
type inputs struct {
	graph *gnn.Graph
	data  bgnn.Dataset
}

func loadInputs(cfg *RunConfig) (*inputs, error) {
	header := cfg.Data.Header
	X, err := openWith(cfg.resolve(cfg.Data.Features), func(r io.Reader) (*mat.Dense, error) { return readMatrixCSV(r, header) })
	if err != nil {
		return nil, err
	}
	Y, err := openWith(cfg.resolve(cfg.Data.Targets), func(r io.Reader) (*mat.Dense, error) { return readMatrixCSV(r, header) })
	if err != nil {
		return nil, err
	}
	edges, err := openWith(cfg.resolve(cfg.Data.Edges), func(r io.Reader) ([]gnn.Edge, error) { return readEdgesCSV(r, header) })
	if err != nil {
		return nil, err
	}
	masks, err := openWith(cfg.resolve(cfg.Data.Masks), readMasks)
	if err != nil {
		return nil, err
	}

	n, _ := X.Dims()
	var opts []gnn.GraphOption
	if cfg.Data.Undirected {
		opts = append(opts, gnn.WithUndirected())
	}
	if cfg.Data.SelfLoops {
		opts = append(opts, gnn.WithSelfLoops())
	}
	g, err := gnn.NewGraph(n, edges, opts...)
	if err != nil {
		return nil, err
	}
	return &inputs{
		graph: g,
		data:  bgnn.Dataset{X: X, Y: Y, Masks: masks},
	}, nil
}
