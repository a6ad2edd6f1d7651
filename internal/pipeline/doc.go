// Package pipeline owns the per-cycle orchestration around the mesh
// segmenter: detection, reconciliation, persistence of archived objects,
// linking of objects to places and periodic maintenance of the
// pending-linkage set.
//
// ObjectPipeline is the composition root. It imports segment, scenegraph
// and storage, but none of those packages import pipeline/.
package pipeline
