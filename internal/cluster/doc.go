// Package cluster partitions labeled mesh vertices into spatially connected
// groups.
//
// Responsibilities: 3-D grid spatial index, Euclidean cluster extraction
// bounded by minimum and maximum cluster size, and the per-cluster point
// subset and centroid.
// Key types: Cluster, Centroid, Params, Clusterer.
package cluster
