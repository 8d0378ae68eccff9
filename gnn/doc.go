// Package gnn implements the graph network used by the co-training loop: a sparse
// normalised adjacency, a two layer graph convolutional network with explicit
// forward and backward passes, and the Adam optimizer.
//
// Layers keep the activations of the last Forward call, so Backward must follow
// the Forward it differentiates. Modules are not safe for concurrent use.
//
//	g, _ := gnn.NewGraph(n, edges, gnn.WithSelfLoops(), gnn.WithUndirected())
//	net, _ := gnn.NewGCN(gnn.GCNConfig{InDim: 8, HiddenDim: 64, OutDim: 1})
//	opt := gnn.NewAdam(net.Params(), 0.01)
//	out, _ := net.Forward(g, x, true)
package gnn
