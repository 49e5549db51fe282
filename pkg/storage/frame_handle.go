package storage

import "sync"

// ReadHandle is the read-only view of a page returned by the buffer pool.
// It holds the frame's read latch shared and one unit of pin count. Because
// Go has no deterministic destructors, callers must call Close exactly once
// on every code path (typically via defer) to release the latch and unpin
// the page — the explicit stand-in for the spec's "drop releases the latch
// and decrements the pin count".
type ReadHandle struct {
	pool   *BufferPoolManager
	frame  *frame
	pageID PageID
	once   sync.Once
}

// PageID returns the id of the page this handle refers to.
func (h *ReadHandle) PageID() PageID { return h.pageID }

// Data returns the page's bytes. The returned slice aliases the frame's
// storage and must not be retained past Close.
func (h *ReadHandle) Data() []byte { return h.frame.data[:] }

// Close releases the read latch and unpins the page (dirty=false). Safe to
// call more than once; only the first call has effect.
func (h *ReadHandle) Close() error {
	h.once.Do(func() {
		h.frame.latch.RUnlock()
		h.pool.unpinPage(h.pageID, false)
	})
	return nil
}

// WriteHandle is the mutable view of a page returned by the buffer pool. It
// holds the frame's write latch exclusively and one unit of pin count.
// Callers must call Close exactly once on every code path.
type WriteHandle struct {
	pool   *BufferPoolManager
	frame  *frame
	pageID PageID
	once   sync.Once
}

// PageID returns the id of the page this handle refers to.
func (h *WriteHandle) PageID() PageID { return h.pageID }

// Data returns the page's bytes for reading.
func (h *WriteHandle) Data() []byte { return h.frame.data[:] }

// DataMut returns the page's bytes for writing. The returned slice aliases
// the frame's storage and must not be retained past Close.
func (h *WriteHandle) DataMut() []byte { return h.frame.data[:] }

// WriteAt bounds-checked copies src into the page at offset.
func (h *WriteHandle) WriteAt(offset int, src []byte) error {
	return h.frame.write(offset, src)
}

// Close releases the write latch and unpins the page (dirty=true). Safe to
// call more than once; only the first call has effect.
func (h *WriteHandle) Close() error {
	h.once.Do(func() {
		h.frame.latch.Unlock()
		h.pool.unpinPage(h.pageID, true)
	})
	return nil
}
