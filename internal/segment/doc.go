// Package segment turns a growing, semantically colored scene mesh into
// persistent object nodes in the scene graph.
//
// Each update cycle runs two stages:
//
//   - Detect: restrict the new vertex indices to the active region around
//     the reference position, partition them by semantic label and cluster
//     each label of interest.
//   - Reconcile: retire objects not observed within the archive horizon,
//     match each cluster to a live object of its label (first match wins)
//     or create a new one, then collapse overlapping objects of the label.
//
// The MeshSegmenter owns all per-run bookkeeping (live objects per label,
// last observation times, objects awaiting place linking, the node id
// counter). It is not safe for concurrent use; callers serialise cycles.
package segment
