package storage

import (
	"encoding/binary"
	"fmt"
)

// Table page binary layout: a 16-byte header, followed by a slot array
// growing forward from the header, followed by tuple payloads growing
// backward from the page tail.
const (
	tablePageHeaderSize = 16
	slotEntrySize       = 6
)

// TupleMetadata is the per-slot bookkeeping stored alongside a tuple: just
// whether it has been logically deleted.
type TupleMetadata struct {
	IsDeleted bool
}

// --- header accessors, shared by reader and writer views ---

func readNextPageID(data []byte) PageID {
	return PageID(binary.LittleEndian.Uint32(data[0:4]))
}

func writeNextPageID(data []byte, next PageID) {
	binary.LittleEndian.PutUint32(data[0:4], uint32(next))
}

func readTupleCount(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data[4:8])
}

func writeTupleCount(data []byte, n uint32) {
	binary.LittleEndian.PutUint32(data[4:8], n)
}

func readDeletedTupleCount(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data[8:12])
}

func writeDeletedTupleCount(data []byte, n uint32) {
	binary.LittleEndian.PutUint32(data[8:12], n)
}

// --- slot accessors ---

func slotOffset(i uint32) int {
	return tablePageHeaderSize + int(i)*slotEntrySize
}

func readSlot(data []byte, i uint32) (offset, size uint16, meta TupleMetadata) {
	o := slotOffset(i)
	offset = binary.LittleEndian.Uint16(data[o : o+2])
	size = binary.LittleEndian.Uint16(data[o+2 : o+4])
	meta = TupleMetadata{IsDeleted: data[o+4] != 0}
	return
}

func writeSlot(data []byte, i uint32, offset, size uint16, meta TupleMetadata) {
	o := slotOffset(i)
	binary.LittleEndian.PutUint16(data[o:o+2], offset)
	binary.LittleEndian.PutUint16(data[o+2:o+4], size)
	if meta.IsDeleted {
		data[o+4] = 1
	} else {
		data[o+4] = 0
	}
	data[o+5] = 0
}

func getTuple(data []byte, pageID PageID, rid RecordID) (TupleMetadata, []byte, error) {
	if rid.PageID != pageID {
		return TupleMetadata{}, nil, newErr(KindInvalidInput, fmt.Sprintf("record id page %d does not match table page %d", rid.PageID, pageID))
	}
	cnt := readTupleCount(data)
	if rid.SlotID >= cnt {
		return TupleMetadata{}, nil, newErr(KindInvalidInput, fmt.Sprintf("slot %d out of bounds (tuple count %d)", rid.SlotID, cnt))
	}
	offset, size, meta := readSlot(data, rid.SlotID)
	tuple := make([]byte, size)
	copy(tuple, data[offset:int(offset)+int(size)])
	return meta, tuple, nil
}

// TablePageReader wraps a page handle and interprets its bytes as a table
// page for read-only access.
type TablePageReader struct {
	h *ReadHandle
}

// NewTablePageReader builds a read-only table page view over h.
func NewTablePageReader(h *ReadHandle) *TablePageReader {
	return &TablePageReader{h: h}
}

// PageID returns the id of the underlying page.
func (r *TablePageReader) PageID() PageID { return r.h.PageID() }

// NextPageID returns the next page in the heap's chain, or InvalidPageID.
func (r *TablePageReader) NextPageID() PageID { return readNextPageID(r.h.Data()) }

// TupleCount returns the number of slots (including logically deleted ones).
func (r *TablePageReader) TupleCount() uint32 { return readTupleCount(r.h.Data()) }

// GetTuple returns the metadata and a copy of the tuple bytes at rid.
func (r *TablePageReader) GetTuple(rid RecordID) (TupleMetadata, []byte, error) {
	return getTuple(r.h.Data(), r.h.PageID(), rid)
}

// TablePageWriter wraps a write handle and interprets its bytes as a table
// page, additionally allowing mutation.
type TablePageWriter struct {
	h *WriteHandle
}

// NewTablePageWriter builds a mutable table page view over h.
func NewTablePageWriter(h *WriteHandle) *TablePageWriter {
	return &TablePageWriter{h: h}
}

// PageID returns the id of the underlying page.
func (w *TablePageWriter) PageID() PageID { return w.h.PageID() }

// NextPageID returns the next page in the heap's chain, or InvalidPageID.
func (w *TablePageWriter) NextPageID() PageID { return readNextPageID(w.h.Data()) }

// TupleCount returns the number of slots (including logically deleted ones).
func (w *TablePageWriter) TupleCount() uint32 { return readTupleCount(w.h.Data()) }

// GetTuple returns the metadata and a copy of the tuple bytes at rid.
func (w *TablePageWriter) GetTuple(rid RecordID) (TupleMetadata, []byte, error) {
	return getTuple(w.h.Data(), w.h.PageID(), rid)
}

// InitHeader zeroes the 16-byte header, setting next_page_id, tuple_cnt=0,
// and deleted_tuple_cnt=0. The slot and tuple regions are not cleared; with
// tuple_cnt=0 none of their bytes are read.
func (w *TablePageWriter) InitHeader(next PageID) {
	data := w.h.DataMut()
	for i := 0; i < tablePageHeaderSize; i++ {
		data[i] = 0
	}
	writeNextPageID(data, next)
}

// SetNextPageID updates the header's next-page pointer.
func (w *TablePageWriter) SetNextPageID(next PageID) {
	writeNextPageID(w.h.DataMut(), next)
}

// SetTupleCount overwrites the header's slot count.
func (w *TablePageWriter) SetTupleCount(n uint32) {
	writeTupleCount(w.h.DataMut(), n)
}

// DeletedTupleCount returns the header's count of logically deleted slots.
func (w *TablePageWriter) DeletedTupleCount() uint32 {
	return readDeletedTupleCount(w.h.DataMut())
}

// IncrementDeletedTupleCount bumps the header's deleted-slot counter.
func (w *TablePageWriter) IncrementDeletedTupleCount() {
	data := w.h.DataMut()
	writeDeletedTupleCount(data, readDeletedTupleCount(data)+1)
}

// InsertTuple appends tuple with the given metadata to the page's slot
// array and tuple heap, returning its new RecordId. Fails with
// ErrOutOfBounds ("page full") if there is not enough free space.
func (w *TablePageWriter) InsertTuple(meta TupleMetadata, tuple []byte) (RecordID, error) {
	data := w.h.DataMut()
	pageID := w.h.PageID()
	cnt := readTupleCount(data)

	freeStart := tablePageHeaderSize + int(cnt)*slotEntrySize
	freeEnd := PageSize
	for i := uint32(0); i < cnt; i++ {
		offset, _, _ := readSlot(data, i)
		if int(offset) < freeEnd {
			freeEnd = int(offset)
		}
	}

	needed := slotEntrySize + len(tuple)
	if freeEnd-freeStart < needed {
		return RecordID{}, newErr(KindOutOfBounds, fmt.Sprintf("page %d has no room for a %d-byte tuple", pageID, len(tuple)))
	}

	tupleOffset := freeEnd - len(tuple)
	copy(data[tupleOffset:tupleOffset+len(tuple)], tuple)
	writeSlot(data, cnt, uint16(tupleOffset), uint16(len(tuple)), meta)
	writeTupleCount(data, cnt+1)

	return NewRecordID(pageID, cnt), nil
}

// UpdateTupleMetadata overwrites the metadata of an existing slot, leaving
// the tuple bytes untouched. Valid even for an already-deleted slot.
func (w *TablePageWriter) UpdateTupleMetadata(rid RecordID, meta TupleMetadata) error {
	data := w.h.DataMut()
	pageID := w.h.PageID()
	if rid.PageID != pageID {
		return newErr(KindInvalidInput, fmt.Sprintf("record id page %d does not match table page %d", rid.PageID, pageID))
	}
	cnt := readTupleCount(data)
	if rid.SlotID >= cnt {
		return newErr(KindInvalidInput, fmt.Sprintf("slot %d out of bounds (tuple count %d)", rid.SlotID, cnt))
	}
	offset, size, _ := readSlot(data, rid.SlotID)
	writeSlot(data, rid.SlotID, offset, size, meta)
	return nil
}
