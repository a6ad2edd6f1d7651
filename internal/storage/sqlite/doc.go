// Package sqlite persists objects retired by the segmenter's archive
// horizon. The schema is managed by golang-migrate from SQL files embedded
// in the binary.
package sqlite
