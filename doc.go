// Package rrcf implements Robust Random Cut Forests (RRCF) for online
// anomaly detection on streaming numeric data.
//
// An RRCF maintains an ensemble of randomized binary space-partition trees.
// Each incoming sample is inserted into every tree, the oldest retained
// sample is forgotten once the working window is full, and the sample's
// anomaly score is its collusive displacement (CoDisp): how strongly its
// removal, together with a colluding subtree, would displace the rest of the
// model. Structurally disruptive samples score high.
//
// Basic usage on a scalar stream:
//
//	cfg := rrcf.DefaultForestConfig()
//	cfg.Trees = 40
//	cfg.ShingleSize = 4
//	forest, err := rrcf.NewForest(cfg)
//	for _, x := range stream {
//		score, err := forest.AddPoint(x)
//		// score is the mean CoDisp of x's window across the ensemble
//	}
//
// # Tree variants
//
// Two interchangeable tree implementations back the forest. Tree stores a
// full d-dimensional point at every leaf and recomputes bounding boxes from
// the leaves on demand. ShingledTree stores only a window start index per
// leaf, reading coordinates lazily from a shared BoundedBuffer of scalars,
// and keeps per-branch bit-packed bounding-box metadata so that child boxes
// decode in O(d) during descent. Under the same seed and input sequence both
// variants build identical structures; their String renderings are the
// golden-test gate for that agreement.
package rrcf
