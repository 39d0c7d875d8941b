// Package mmap provides read-only memory-mapped file access.
//
// LocalStore maps image files instead of reading them through a buffer:
//
//	m, err := mmap.Open(path)
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Copy() // owned copy, survives Close
//
// Unix uses mmap(2) and madvise(2) via golang.org/x/sys/unix. Windows uses
// CreateFileMapping/MapViewOfFile; Advise is a no-op there.
//
// Bytes is only valid until Close. Close is idempotent.
package mmap
