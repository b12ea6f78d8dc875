// Package writer puts generated files on disk.
//
// # Layout
//
// Every request writes under one output directory:
//
//	<out>/base/  machine-owned files, overwritten on every run
//	<out>/biz/   user-owned files, protected on regeneration
//
// # Sequencing
//
// All writes to one path are serialized by a per-path lock. WriteBiz holds
// the lock while its callback reads the current file, backs it up and
// decides the new content, so a backup and the write that follows it can
// never interleave with another writer targeting the same file:
//
//	written, err := w.WriteBiz(path, func(cur []byte, exists bool) ([]byte, bool, error) {
//	    // extract, back up, merge
//	    return merged, true, nil
//	})
//
// # Atomic writes
//
// Content is written to a temporary file in the target directory and renamed
// over the target, so readers see either the old or the new file and a failed
// write never leaves a truncated file behind.
package writer
