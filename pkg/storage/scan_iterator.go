package storage

// ScanIterator is a finite, forward, non-restartable iterator over a table
// heap's tuples. It captures the heap's first page id at construction and
// re-fetches one page at a time as it walks the chain, so a scan never pins
// the whole heap at once.
type ScanIterator struct {
	pool          *BufferPoolManager
	currentPageID PageID
	currentSlot   uint32
}

func newScanIterator(pool *BufferPoolManager, firstPageID PageID) *ScanIterator {
	return &ScanIterator{pool: pool, currentPageID: firstPageID}
}

// Next returns the next non-deleted (RecordID, tuple) pair. ok is false
// once the chain is exhausted, with err nil. A non-nil err reports a
// genuine failure (not "end of page," which is handled internally); the
// iterator is not invalidated by it and the same position is retried if
// Next is called again.
func (it *ScanIterator) Next() (RecordID, []byte, bool, error) {
	for {
		if it.currentPageID == InvalidPageID {
			return RecordID{}, nil, false, nil
		}

		h, err := it.pool.FetchPageHandle(it.currentPageID)
		if err != nil {
			return RecordID{}, nil, false, err
		}

		r := NewTablePageReader(h)
		rid := NewRecordID(it.currentPageID, it.currentSlot)
		meta, tuple, err := r.GetTuple(rid)
		if err == nil {
			it.currentSlot++
			h.Close()
			if meta.IsDeleted {
				continue
			}
			return rid, tuple, true, nil
		}

		if IsKind(err, KindInvalidInput) || IsKind(err, KindOutOfBounds) {
			next := r.NextPageID()
			h.Close()
			it.currentPageID = next
			it.currentSlot = 0
			continue
		}

		h.Close()
		return RecordID{}, nil, false, err
	}
}
