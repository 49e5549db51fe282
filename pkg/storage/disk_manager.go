package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

const defaultInitialPageCapacity = 32

// The first page-sized slot of the file (offset 0) is reserved for
// metadata: the page id -> offset map and the free-slot queue, snapshotted
// here so a reopened DiskManager can reconstruct the state a fresh one only
// ever builds in memory. Mirrors the teacher's own metadata-page free-list
// pattern, generalized to cover the full offset map rather than just free
// slots.
const (
	metadataMagic         = 0x4c444d31 // "LDM1"
	metadataHeaderSize    = 24
	metadataEntrySize     = 12 // page id (uint32) + offset (int64)
	metadataFreeEntrySize = 8  // offset (int64)
)

// DiskManagerStats is a snapshot of disk manager activity counters, exposed
// through the debug /stats endpoint.
type DiskManagerStats struct {
	PagesAllocated   uint64
	PagesDeallocated uint64
	BytesRead        uint64
	BytesWritten     uint64
}

// DiskManager owns the database file: it allocates and recycles page-sized
// slots and performs aligned reads and writes under an exclusive advisory
// file lock, so that at most one process has the file open at a time.
type DiskManager struct {
	mu sync.Mutex

	file *os.File

	nextPageID  uint32
	offsets     map[PageID]int64
	freeOffsets []int64

	capacity int64 // file capacity, in pages
	used     int64 // number of page-sized slots handed out by append so far

	pagesAllocated   atomic.Uint64
	pagesDeallocated atomic.Uint64
	bytesRead        atomic.Uint64
	bytesWritten     atomic.Uint64
}

// NewDiskManager opens or creates filename, acquires an exclusive advisory
// lock on it, and preallocates space for initialPageCapacity+1 pages. If
// initialPageCapacity is 0, defaultInitialPageCapacity is used.
func NewDiskManager(filename string, initialPageCapacity int) (*DiskManager, error) {
	if initialPageCapacity <= 0 {
		initialPageCapacity = defaultInitialPageCapacity
	}

	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, wrapErr(KindIO, "open database file", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, wrapErr(KindIO, "acquire exclusive file lock", err)
	}

	info, err := f.Stat()
	if err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, wrapErr(KindIO, "stat database file", err)
	}
	existingPages := info.Size() / PageSize

	capacity := int64(initialPageCapacity) + 1
	if existingPages > capacity {
		capacity = existingPages
	}
	if err := f.Truncate(capacity * PageSize); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, wrapErr(KindIO, "preallocate database file", err)
	}

	d := &DiskManager{
		file:     f,
		capacity: capacity,
	}

	if existingPages > 0 {
		if err := d.loadMetadata(); err != nil {
			// No readable snapshot (e.g. a database file from before this
			// reservation existed): fall back to a fresh, empty map rather
			// than failing the open, matching the teacher's own
			// loadFreePageList fallback.
			d.resetMetadata()
		}
	} else {
		d.resetMetadata()
		if err := d.persistMetadataLocked(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return d, nil
}

// resetMetadata initializes fresh, empty bookkeeping state. Slot 0 is
// reserved for the metadata page itself, so the first real page lands at
// offset PageSize.
func (d *DiskManager) resetMetadata() {
	d.nextPageID = 1
	d.offsets = make(map[PageID]int64)
	d.freeOffsets = nil
	d.used = 1
}

// loadMetadata reconstructs the id->offset map, free-slot queue, and
// nextPageID counter from the reserved metadata page written by a prior
// session. Returns an error if the page has no valid snapshot.
func (d *DiskManager) loadMetadata() error {
	buf := make([]byte, PageSize)
	if _, err := d.file.ReadAt(buf, 0); err != nil {
		return err
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != metadataMagic {
		return fmt.Errorf("metadata page: bad magic")
	}

	nextPageID := binary.LittleEndian.Uint32(buf[4:8])
	used := int64(binary.LittleEndian.Uint64(buf[8:16]))
	numEntries := binary.LittleEndian.Uint32(buf[16:20])
	numFree := binary.LittleEndian.Uint32(buf[20:24])

	off := metadataHeaderSize
	offsets := make(map[PageID]int64, numEntries)
	for i := uint32(0); i < numEntries; i++ {
		if off+metadataEntrySize > PageSize {
			return fmt.Errorf("metadata page: entry table truncated")
		}
		pid := PageID(binary.LittleEndian.Uint32(buf[off : off+4]))
		pageOff := int64(binary.LittleEndian.Uint64(buf[off+4 : off+12]))
		offsets[pid] = pageOff
		off += metadataEntrySize
	}

	freeOffsets := make([]int64, 0, numFree)
	for i := uint32(0); i < numFree; i++ {
		if off+metadataFreeEntrySize > PageSize {
			return fmt.Errorf("metadata page: free-slot queue truncated")
		}
		freeOffsets = append(freeOffsets, int64(binary.LittleEndian.Uint64(buf[off:off+8])))
		off += metadataFreeEntrySize
	}

	d.nextPageID = nextPageID
	d.used = used
	d.offsets = offsets
	d.freeOffsets = freeOffsets
	return nil
}

// persistMetadataLocked snapshots the current id->offset map, free-slot
// queue, and nextPageID counter to the reserved metadata page and syncs it.
// Must be called with d.mu held (or during single-threaded construction).
// If the current state no longer fits in one page, it persists as many
// entries as fit and leaves the rest unrecorded: a future reopen recovers
// a partial map, which only costs a lost free-slot reuse or an OpenTable
// reattachment beyond that point, never the durability of data pages
// already written and synced.
func (d *DiskManager) persistMetadataLocked() error {
	buf := make([]byte, PageSize)
	binary.LittleEndian.PutUint32(buf[4:8], d.nextPageID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(d.used))

	off := metadataHeaderSize
	numEntries := uint32(0)
	for pid, pageOff := range d.offsets {
		if off+metadataEntrySize > PageSize {
			break
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(pid))
		binary.LittleEndian.PutUint64(buf[off+4:off+12], uint64(pageOff))
		off += metadataEntrySize
		numEntries++
	}
	binary.LittleEndian.PutUint32(buf[16:20], numEntries)

	numFree := uint32(0)
	for _, pageOff := range d.freeOffsets {
		if off+metadataFreeEntrySize > PageSize {
			break
		}
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(pageOff))
		off += metadataFreeEntrySize
		numFree++
	}
	binary.LittleEndian.PutUint32(buf[20:24], numFree)

	binary.LittleEndian.PutUint32(buf[0:4], metadataMagic)

	if _, err := d.file.WriteAt(buf, 0); err != nil {
		return wrapErr(KindIO, "persist metadata page", err)
	}
	if err := d.file.Sync(); err != nil {
		return wrapErr(KindIO, "sync metadata page", err)
	}
	return nil
}

func (d *DiskManager) growIfNeeded() error {
	if d.used < d.capacity {
		return nil
	}
	d.capacity *= 2
	if err := d.file.Truncate(d.capacity * PageSize); err != nil {
		return wrapErr(KindIO, "grow database file", err)
	}
	return nil
}

func (d *DiskManager) nextOffset() (int64, error) {
	if n := len(d.freeOffsets); n > 0 {
		off := d.freeOffsets[n-1]
		d.freeOffsets = d.freeOffsets[:n-1]
		return off, nil
	}
	if err := d.growIfNeeded(); err != nil {
		return 0, err
	}
	off := d.used * PageSize
	d.used++
	return off, nil
}

// AllocatePage assigns the next monotonic page id (never 0), picks a file
// offset (reused from the free-slot queue if one is available, otherwise
// appended), zero-initializes the page on disk, and returns the new id.
func (d *DiskManager) AllocatePage() (PageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	off, err := d.nextOffset()
	if err != nil {
		return InvalidPageID, err
	}

	var zero [PageSize]byte
	if _, err := d.file.WriteAt(zero[:], off); err != nil {
		return InvalidPageID, wrapErr(KindIO, "zero-initialize new page", err)
	}

	id := PageID(d.nextPageID)
	d.nextPageID++
	d.offsets[id] = off
	if err := d.persistMetadataLocked(); err != nil {
		return InvalidPageID, err
	}
	d.pagesAllocated.Add(1)
	return id, nil
}

// DeallocatePage removes the id's offset mapping and returns the offset to
// the free-slot queue for reuse. The file is not shrunk.
func (d *DiskManager) DeallocatePage(pageID PageID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	off, ok := d.offsets[pageID]
	if !ok {
		return newErr(KindInvalidInput, fmt.Sprintf("deallocate unknown page %d", pageID))
	}
	delete(d.offsets, pageID)
	d.freeOffsets = append(d.freeOffsets, off)
	if err := d.persistMetadataLocked(); err != nil {
		return err
	}
	d.pagesDeallocated.Add(1)
	return nil
}

// Read returns the page bytes for pageID, or ok=false if pageID has no
// offset mapping (it was never allocated, or has been deallocated).
func (d *DiskManager) Read(pageID PageID) (data []byte, ok bool, err error) {
	d.mu.Lock()
	off, present := d.offsets[pageID]
	d.mu.Unlock()
	if !present {
		return nil, false, nil
	}

	buf := make([]byte, PageSize)
	if _, err := d.file.ReadAt(buf, off); err != nil {
		return nil, false, wrapErr(KindIO, fmt.Sprintf("read page %d", pageID), err)
	}
	d.bytesRead.Add(PageSize)
	return buf, true, nil
}

// Write persists data as the full contents of pageID, allocating an offset
// for it first if it is not yet known, and fsyncs before returning.
func (d *DiskManager) Write(pageID PageID, data []byte) error {
	if len(data) > PageSize {
		return newErr(KindInvalidData, fmt.Sprintf("write of %d bytes exceeds page size %d", len(data), PageSize))
	}

	d.mu.Lock()
	off, ok := d.offsets[pageID]
	if !ok {
		var err error
		off, err = d.nextOffset()
		if err != nil {
			d.mu.Unlock()
			return err
		}
		d.offsets[pageID] = off
		if err := d.persistMetadataLocked(); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	d.mu.Unlock()

	var buf [PageSize]byte
	copy(buf[:], data)
	if _, err := d.file.WriteAt(buf[:], off); err != nil {
		return wrapErr(KindIO, fmt.Sprintf("write page %d", pageID), err)
	}
	if err := d.file.Sync(); err != nil {
		return wrapErr(KindIO, fmt.Sprintf("sync page %d", pageID), err)
	}
	d.bytesWritten.Add(PageSize)
	return nil
}

// DBFileSize returns the current file length in bytes.
func (d *DiskManager) DBFileSize() (int64, error) {
	info, err := d.file.Stat()
	if err != nil {
		return 0, wrapErr(KindIO, "stat database file", err)
	}
	return info.Size(), nil
}

// Close releases the file lock and closes the underlying file.
func (d *DiskManager) Close() error {
	unix.Flock(int(d.file.Fd()), unix.LOCK_UN)
	return d.file.Close()
}

// Stats returns a snapshot of disk manager activity counters.
func (d *DiskManager) Stats() DiskManagerStats {
	return DiskManagerStats{
		PagesAllocated:   d.pagesAllocated.Load(),
		PagesDeallocated: d.pagesDeallocated.Load(),
		BytesRead:        d.bytesRead.Load(),
		BytesWritten:     d.bytesWritten.Load(),
	}
}
