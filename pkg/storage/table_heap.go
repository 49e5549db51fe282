package storage

import "sync"

// TableHeap is a singly linked list of table pages holding one table's
// tuples. Inserts always target the last page in the chain; on overflow a
// new page is allocated and linked in.
type TableHeap struct {
	name string
	pool *BufferPoolManager

	mu          sync.Mutex
	firstPageID PageID
	lastPageID  PageID
	pageCount   int
}

// NewTableHeap creates a new, empty table heap: one freshly allocated page
// whose header terminates the chain.
func NewTableHeap(name string, pool *BufferPoolManager) (*TableHeap, error) {
	h, err := pool.CreatePageHandle()
	if err != nil {
		return nil, err
	}
	w := NewTablePageWriter(h)
	w.InitHeader(InvalidPageID)
	pageID := h.PageID()
	if err := h.Close(); err != nil {
		return nil, err
	}

	return &TableHeap{
		name:        name,
		pool:        pool,
		firstPageID: pageID,
		lastPageID:  pageID,
		pageCount:   1,
	}, nil
}

// OpenTableHeap attaches to an existing chain of table pages starting at
// firstPageID. The catalog (outside this package) is responsible for
// persisting firstPageID across restarts; the storage core only owns the
// pages themselves.
func OpenTableHeap(name string, pool *BufferPoolManager, firstPageID PageID) (*TableHeap, error) {
	h, err := pool.FetchPageHandle(firstPageID)
	if err != nil {
		return nil, err
	}
	r := NewTablePageReader(h)
	pageCount := 1
	lastPageID := firstPageID
	nextPageID := r.NextPageID()
	h.Close()

	for nextPageID != InvalidPageID {
		h, err := pool.FetchPageHandle(nextPageID)
		if err != nil {
			return nil, err
		}
		r := NewTablePageReader(h)
		lastPageID = nextPageID
		nextPageID = r.NextPageID()
		h.Close()
		pageCount++
	}

	return &TableHeap{
		name:        name,
		pool:        pool,
		firstPageID: firstPageID,
		lastPageID:  lastPageID,
		pageCount:   pageCount,
	}, nil
}

// Name returns the table's name.
func (t *TableHeap) Name() string { return t.name }

// FirstPageID returns the id of the first page in the chain.
func (t *TableHeap) FirstPageID() PageID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firstPageID
}

// PageCount returns the number of pages currently in the chain.
func (t *TableHeap) PageCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pageCount
}

// InsertTuple appends tuple (with is_deleted=false) to the last page of the
// heap, allocating and linking a new page if the current last page is full.
func (t *TableHeap) InsertTuple(tuple []byte) (RecordID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, err := t.pool.FetchPageMutHandle(t.lastPageID)
	if err != nil {
		return RecordID{}, err
	}
	w := NewTablePageWriter(h)
	rid, err := w.InsertTuple(TupleMetadata{IsDeleted: false}, tuple)
	if err == nil {
		h.Close()
		return rid, nil
	}
	if !IsKind(err, KindOutOfBounds) {
		h.Close()
		return RecordID{}, err
	}

	// Current last page is full: allocate a new one and retry the insert
	// there before linking it in, so a tuple that's oversized for even an
	// empty page never leaves a page allocated but unreachable from the
	// chain.
	newHandle, err := t.pool.CreatePageHandle()
	if err != nil {
		h.Close()
		return RecordID{}, err
	}
	newWriter := NewTablePageWriter(newHandle)
	newWriter.InitHeader(InvalidPageID)
	newPageID := newHandle.PageID()

	rid, err = newWriter.InsertTuple(TupleMetadata{IsDeleted: false}, tuple)
	if err != nil {
		newHandle.Close()
		h.Close()
		t.pool.DeletePage(newPageID)
		return RecordID{}, err
	}

	w.SetNextPageID(newPageID)
	newHandle.Close()
	h.Close()

	t.lastPageID = newPageID
	t.pageCount++
	return rid, nil
}

// GetTuple returns the metadata and tuple bytes at rid.
func (t *TableHeap) GetTuple(rid RecordID) (TupleMetadata, []byte, error) {
	h, err := t.pool.FetchPageHandle(rid.PageID)
	if err != nil {
		return TupleMetadata{}, nil, err
	}
	defer h.Close()
	r := NewTablePageReader(h)
	return r.GetTuple(rid)
}

// DeleteTuple logically deletes rid, returning the metadata and tuple bytes
// as they were immediately before the delete. Deleting an already-deleted
// tuple succeeds and is idempotent.
func (t *TableHeap) DeleteTuple(rid RecordID) (TupleMetadata, []byte, error) {
	h, err := t.pool.FetchPageMutHandle(rid.PageID)
	if err != nil {
		return TupleMetadata{}, nil, err
	}
	defer h.Close()

	w := NewTablePageWriter(h)
	meta, tuple, err := w.GetTuple(rid)
	if err != nil {
		return TupleMetadata{}, nil, err
	}

	newMeta := meta
	newMeta.IsDeleted = true
	if err := w.UpdateTupleMetadata(rid, newMeta); err != nil {
		return TupleMetadata{}, nil, err
	}
	if !meta.IsDeleted {
		w.IncrementDeletedTupleCount()
	}

	return meta, tuple, nil
}

// Scan returns a finite, forward, non-restartable iterator over every
// non-deleted tuple of the heap, in (page_id, slot_id) order.
func (t *TableHeap) Scan() *ScanIterator {
	return newScanIterator(t.pool, t.FirstPageID())
}
