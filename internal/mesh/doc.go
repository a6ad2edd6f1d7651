// Package mesh holds the vertex buffer of the live scene mesh and the
// semantic color table used to read labels back out of vertex colors.
//
// Key types: Vertex, Cloud, Color, Label, LabelMap.
//
// The Cloud is append-only while a run is live: vertex indices handed to
// downstream consumers stay valid as the mesh grows.
package mesh
