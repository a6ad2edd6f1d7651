// Package scenegraph is the persistent layered scene graph that tracked
// objects live in.
//
// Responsibilities: node identifiers (NodeSymbol), node storage per layer,
// typed node attributes, parent/child structure edges and mesh edges that
// tie nodes to the vertices of the scene mesh.
// Key types: Graph, Node, NodeID, ObjectAttributes.
package scenegraph
