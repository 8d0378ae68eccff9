// Package bgnn trains a gradient boosted tree ensemble and a graph neural network
// in alternation for node level regression and classification.
//
// Every epoch fits a few trees on the tabular node features, writes the ensemble
// predictions into the node feature tensor, runs a few backpropagation passes of
// the graph network through those features, and uses the change the network made
// to the prediction columns as the target of the next trees.
//
//	p, err := bgnn.New(bgnn.WithTask(bgnn.TaskRegression), bgnn.WithTreesPerEpoch(20))
//	history, err := p.Fit(ctx, graph, bgnn.Dataset{X: X, Y: Y, Masks: masks}, bgnn.FitConfig{
//	    NumEpochs: 200,
//	    Patience:  10,
//	})
//	pred, err := p.Predict(graph, X, nil, masks.Test)
//
// A Predictor is not safe for concurrent Fit calls.
package bgnn
