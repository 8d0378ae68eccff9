// Package bgnn is the module root of a Boost-GNN implementation for Go: gradient
// boosted decision trees and a graph neural network trained in alternation on
// node-level tabular data.
//
// Each epoch fits a few trees to the current targets, writes their predictions into
// the node features, runs a few backpropagation steps of the network (optionally
// optimizing the node features themselves), and uses the change the network made to
// the prediction columns as the next tree targets.
//
// # Installation
//
//	go get github.com/YuminosukeSato/bgnn
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/bgnn/bgnn"
//	    "github.com/YuminosukeSato/bgnn/gnn"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    g, err := gnn.NewGraph(4, []gnn.Edge{{Src: 0, Dst: 1}, {Src: 2, Dst: 3}},
//	        gnn.WithUndirected(), gnn.WithSelfLoops())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
//	    y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})
//
//	    p, err := bgnn.New(bgnn.WithTreesPerEpoch(5))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    history, err := p.Fit(context.Background(), g, bgnn.Dataset{
//	        X: X, Y: y,
//	        Masks: bgnn.Masks{Train: []int{0, 1}, Val: []int{2}, Test: []int{3}},
//	    }, bgnn.FitConfig{NumEpochs: 20, Patience: 5})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("best epoch:", history.BestEpoch)
//
//	    pred, err := p.Predict(g, X, nil, []int{3})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("prediction:", mat.Formatted(pred))
//	}
//
// # Packages
//
//   - bgnn: the co-training predictor, its configuration and training history
//   - bgnn/plot: metric curves of a training history
//   - gnn: graphs, GCN layers and the Adam optimizer
//   - sklearn/lightgbm: gradient boosted trees fitted each epoch
//   - preprocessing: scaling, missing value replacement and target encoding
//   - metrics: regression and classification metrics
//   - pkg/errors, pkg/log, pkg/telemetry: structured errors, logging and Prometheus metrics
//   - cmd/bgnn: command line training from CSV inputs
//
// # License
//
// bgnn is released under the MIT License.
package bgnn
