package storage

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// BufferPoolStats is a snapshot of buffer pool activity counters, exposed
// through the debug /stats endpoint.
type BufferPoolStats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	FreeFrames int
	PoolSize   int
}

// BufferPoolManager orchestrates a fixed-size array of frames, the disk
// manager, and a Replacer. It hands out pinned, latch-guarded handles to
// pages and enforces that a pinned frame is never evicted.
//
// mu is the single process-wide latch protecting the page table, free list,
// replacer, and frame-bookkeeping fields below (pageID/pinCount/dirty on
// each frame, as distinct from the frame's own bytes, are bookkeeping too).
// Handles read/write page bytes under the frame's own latch once this one
// has been released, and FlushPage/DeletePage release it around their disk
// writes. Eviction writeback, the disk read on a fetch miss, and page
// allocation in createPage run while it is held.
type BufferPoolManager struct {
	mu sync.Mutex

	frames    []*frame
	pageTable map[PageID]FrameID
	freeList  []FrameID
	replacer  Replacer
	disk      *DiskManager

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewBufferPoolManager builds a pool of poolSize frames backed by disk,
// using an LRU-K replacer with history depth k.
func NewBufferPoolManager(poolSize int, k int, disk *DiskManager) (*BufferPoolManager, error) {
	if poolSize <= 0 {
		return nil, newErr(KindInvalidInput, "pool size must be positive")
	}
	frames := make([]*frame, poolSize)
	freeList := make([]FrameID, poolSize)
	for i := range frames {
		frames[i] = newFrame(FrameID(i))
		freeList[i] = FrameID(i)
	}
	return &BufferPoolManager{
		frames:    frames,
		pageTable: make(map[PageID]FrameID),
		freeList:  freeList,
		replacer:  NewLRUKReplacer(k),
		disk:      disk,
	}, nil
}

// getFreeFrame returns a frame ready for reuse: popped from the free list,
// or evicted from the replacer. Caller must hold mu.
func (bp *BufferPoolManager) getFreeFrame() (FrameID, error) {
	if n := len(bp.freeList); n > 0 {
		frameID := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return frameID, nil
	}

	frameID, ok := bp.replacer.Evict()
	if !ok {
		return 0, newErr(KindBufferPoolError, "no evictable frame available")
	}

	f := bp.frames[frameID]
	if f.pinCountVal() != 0 {
		panic(fmt.Sprintf("storage: replacer chose pinned frame %d for eviction", frameID))
	}
	if f.isDirty() {
		if err := bp.disk.Write(f.pageIDVal(), f.data[:]); err != nil {
			bp.replacer.Unpin(frameID) // make it evictable again; frame state is unchanged
			return 0, wrapErr(KindBufferPoolError, "flush victim frame on eviction", err)
		}
	}
	delete(bp.pageTable, f.pageIDVal())
	f.reset()
	bp.evictions.Add(1)
	return frameID, nil
}

// createPage allocates a new page on disk and binds it to a free frame.
// Caller must hold mu. The returned frame's pin count is still zero; the
// handle-returning caller increments it after acquiring the frame latch.
func (bp *BufferPoolManager) createPage() (*frame, PageID, error) {
	frameID, err := bp.getFreeFrame()
	if err != nil {
		return nil, InvalidPageID, err
	}
	id, err := bp.disk.AllocatePage()
	if err != nil {
		bp.freeList = append(bp.freeList, frameID)
		return nil, InvalidPageID, err
	}
	f := bp.frames[frameID]
	f.setPageID(id)
	f.setDirty(false)
	bp.pageTable[id] = frameID
	bp.replacer.RecordAccess(frameID)
	bp.replacer.Pin(frameID)
	return f, id, nil
}

// fetchPage resolves pageID to a resident frame, loading it from disk if
// necessary. Caller must hold mu. Like createPage, it leaves the frame's
// pin count untouched; the handle-returning caller increments it.
func (bp *BufferPoolManager) fetchPage(pageID PageID) (f *frame, hit bool, err error) {
	if frameID, ok := bp.pageTable[pageID]; ok {
		f := bp.frames[frameID]
		bp.replacer.RecordAccess(frameID)
		bp.replacer.Pin(frameID)
		return f, true, nil
	}

	frameID, err := bp.getFreeFrame()
	if err != nil {
		return nil, false, err
	}
	data, ok, err := bp.disk.Read(pageID)
	if err != nil {
		bp.freeList = append(bp.freeList, frameID)
		return nil, false, err
	}
	if !ok {
		bp.freeList = append(bp.freeList, frameID)
		return nil, false, newErr(KindInvalidInput, fmt.Sprintf("fetch of unallocated page %d", pageID))
	}

	nf := bp.frames[frameID]
	nf.setPageID(pageID)
	nf.setDirty(false)
	copy(nf.data[:], data)
	bp.pageTable[pageID] = frameID
	bp.replacer.RecordAccess(frameID)
	bp.replacer.Pin(frameID)
	return nf, false, nil
}

// CreatePageHandle allocates a fresh page and returns a write handle to it.
func (bp *BufferPoolManager) CreatePageHandle() (*WriteHandle, error) {
	bp.mu.Lock()
	f, id, err := bp.createPage()
	bp.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.latch.Lock()
	f.incrementPinCount()
	return &WriteHandle{pool: bp, frame: f, pageID: id}, nil
}

// FetchPageHandle returns a read handle to pageID, fetching it from disk if
// it is not already resident.
func (bp *BufferPoolManager) FetchPageHandle(pageID PageID) (*ReadHandle, error) {
	bp.mu.Lock()
	f, hit, err := bp.fetchPage(pageID)
	bp.mu.Unlock()
	if err != nil {
		return nil, err
	}
	bp.recordHitMiss(hit)
	f.latch.RLock()
	f.incrementPinCount()
	return &ReadHandle{pool: bp, frame: f, pageID: pageID}, nil
}

// FetchPageMutHandle returns a write handle to pageID, fetching it from disk
// if it is not already resident.
func (bp *BufferPoolManager) FetchPageMutHandle(pageID PageID) (*WriteHandle, error) {
	bp.mu.Lock()
	f, hit, err := bp.fetchPage(pageID)
	bp.mu.Unlock()
	if err != nil {
		return nil, err
	}
	bp.recordHitMiss(hit)
	f.latch.Lock()
	f.incrementPinCount()
	return &WriteHandle{pool: bp, frame: f, pageID: pageID}, nil
}

func (bp *BufferPoolManager) recordHitMiss(hit bool) {
	if hit {
		bp.hits.Add(1)
	} else {
		bp.misses.Add(1)
	}
}

// unpinPage decrements pageID's pin count and, if it reaches zero, marks
// the frame evictable. Unpinning an unknown page id is a programmer error
// and panics, per §7.
func (bp *BufferPoolManager) unpinPage(pageID PageID, isDirty bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[pageID]
	if !ok {
		panic(fmt.Sprintf("storage: unpin of non-resident page %d", pageID))
	}
	f := bp.frames[frameID]
	f.decrementPinCount()
	if isDirty {
		f.setDirty(true)
	}
	if f.pinCountVal() == 0 {
		bp.replacer.Unpin(frameID)
	}
}

// FlushPage writes pageID's bytes to disk if resident and dirty, clearing
// the dirty flag. It is a no-op if resident and clean, and an error if
// pageID is not resident.
func (bp *BufferPoolManager) FlushPage(pageID PageID) error {
	bp.mu.Lock()
	frameID, ok := bp.pageTable[pageID]
	if !ok {
		bp.mu.Unlock()
		return newErr(KindBufferPoolError, fmt.Sprintf("flush of page %d not resident in pool", pageID))
	}
	f := bp.frames[frameID]
	if !f.isDirty() {
		bp.mu.Unlock()
		return nil
	}
	var data [PageSize]byte
	copy(data[:], f.data[:])
	bp.mu.Unlock()

	if err := bp.disk.Write(pageID, data[:]); err != nil {
		return err
	}

	bp.mu.Lock()
	f.setDirty(false)
	bp.mu.Unlock()
	return nil
}

// DeletePage removes pageID from the pool (failing if it is pinned),
// flushing it first if dirty, and always deallocates it on disk.
func (bp *BufferPoolManager) DeletePage(pageID PageID) error {
	bp.mu.Lock()
	frameID, resident := bp.pageTable[pageID]
	if resident {
		f := bp.frames[frameID]
		if f.pinCountVal() > 0 {
			bp.mu.Unlock()
			return pagePinnedErr(pageID)
		}
		if f.isDirty() {
			var data [PageSize]byte
			copy(data[:], f.data[:])
			bp.mu.Unlock()
			if err := bp.disk.Write(pageID, data[:]); err != nil {
				return err
			}
			bp.mu.Lock()
		}
		delete(bp.pageTable, pageID)
		bp.replacer.Remove(frameID)
		f.reset()
		bp.freeList = append(bp.freeList, frameID)
	}
	bp.mu.Unlock()

	return bp.disk.DeallocatePage(pageID)
}

// FreeFrameCount is the number of frames a new create/fetch can use: the
// free list plus the replacer's evictable count (frames that are resident
// and unpinned, usable after an eviction).
func (bp *BufferPoolManager) FreeFrameCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.freeList) + bp.replacer.EvictableCount()
}

// Stats returns a snapshot of buffer pool activity counters.
func (bp *BufferPoolManager) Stats() BufferPoolStats {
	bp.mu.Lock()
	free := len(bp.freeList) + bp.replacer.EvictableCount()
	pool := len(bp.frames)
	bp.mu.Unlock()
	return BufferPoolStats{
		Hits:       bp.hits.Load(),
		Misses:     bp.misses.Load(),
		Evictions:  bp.evictions.Load(),
		FreeFrames: free,
		PoolSize:   pool,
	}
}
