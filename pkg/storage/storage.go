package storage

import (
	"fmt"
	"sync"
)

// TableID identifies a table at the catalog/storage boundary.
type TableID uint32

// Config holds the configuration options the storage core recognizes:
// pool_size, k, database_filename, and initial_page_capacity.
type Config struct {
	PoolSize            int    // buffer pool size in frames, positive
	K                   int    // LRU-K history depth, positive (typical 2-5)
	DatabaseFilename    string // path to the backing file
	InitialPageCapacity int    // starting file capacity in pages, doubles on demand
}

// DefaultConfig returns a Config with sensible defaults for databaseFilename.
func DefaultConfig(databaseFilename string) *Config {
	return &Config{
		PoolSize:            1000,
		K:                   2,
		DatabaseFilename:    databaseFilename,
		InitialPageCapacity: defaultInitialPageCapacity,
	}
}

// StorageEngine is the catalog/storage boundary: it owns the disk manager
// and buffer pool and exposes one table heap per registered TableID.
type StorageEngine struct {
	disk *DiskManager
	pool *BufferPoolManager

	mu     sync.RWMutex
	tables map[TableID]*TableHeap
}

// Open creates or opens a database file per config and returns a storage
// engine ready to register tables against it.
func Open(config *Config) (*StorageEngine, error) {
	disk, err := NewDiskManager(config.DatabaseFilename, config.InitialPageCapacity)
	if err != nil {
		return nil, fmt.Errorf("open disk manager: %w", err)
	}
	pool, err := NewBufferPoolManager(config.PoolSize, config.K, disk)
	if err != nil {
		disk.Close()
		return nil, fmt.Errorf("create buffer pool: %w", err)
	}
	return &StorageEngine{
		disk:   disk,
		pool:   pool,
		tables: make(map[TableID]*TableHeap),
	}, nil
}

// CreateTable registers a new table heap under tableID. Fails if the id
// already exists.
func (se *StorageEngine) CreateTable(tableID TableID, name string) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	if _, exists := se.tables[tableID]; exists {
		return newErr(KindInvalidInput, fmt.Sprintf("table %d already exists", tableID))
	}
	heap, err := NewTableHeap(name, se.pool)
	if err != nil {
		return fmt.Errorf("create table heap for %q: %w", name, err)
	}
	se.tables[tableID] = heap
	return nil
}

// OpenTable attaches tableID to an existing chain of table pages rooted at
// firstPageID, as a catalog would do after reopening a database whose
// tables it already knows about. Fails if tableID is already registered.
func (se *StorageEngine) OpenTable(tableID TableID, name string, firstPageID PageID) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	if _, exists := se.tables[tableID]; exists {
		return newErr(KindInvalidInput, fmt.Sprintf("table %d already exists", tableID))
	}
	heap, err := OpenTableHeap(name, se.pool, firstPageID)
	if err != nil {
		return fmt.Errorf("open table heap for %q: %w", name, err)
	}
	se.tables[tableID] = heap
	return nil
}

// TableFirstPageID returns the root page id of tableID's heap, for a
// catalog to persist and later pass back to OpenTable.
func (se *StorageEngine) TableFirstPageID(tableID TableID) (PageID, error) {
	heap, err := se.tableHeap(tableID)
	if err != nil {
		return InvalidPageID, err
	}
	return heap.FirstPageID(), nil
}

func (se *StorageEngine) tableHeap(tableID TableID) (*TableHeap, error) {
	se.mu.RLock()
	defer se.mu.RUnlock()
	heap, ok := se.tables[tableID]
	if !ok {
		return nil, newErr(KindInvalidInput, fmt.Sprintf("unknown table %d", tableID))
	}
	return heap, nil
}

// InsertTuple inserts tuple into tableID's heap and returns its new RecordID.
func (se *StorageEngine) InsertTuple(tableID TableID, tuple []byte) (RecordID, error) {
	heap, err := se.tableHeap(tableID)
	if err != nil {
		return RecordID{}, err
	}
	return heap.InsertTuple(tuple)
}

// GetTuple returns the tuple bytes at rid within tableID's heap.
func (se *StorageEngine) GetTuple(tableID TableID, rid RecordID) ([]byte, error) {
	heap, err := se.tableHeap(tableID)
	if err != nil {
		return nil, err
	}
	_, tuple, err := heap.GetTuple(rid)
	return tuple, err
}

// DeleteTuple logically deletes rid within tableID's heap.
func (se *StorageEngine) DeleteTuple(tableID TableID, rid RecordID) error {
	heap, err := se.tableHeap(tableID)
	if err != nil {
		return err
	}
	_, _, err = heap.DeleteTuple(rid)
	return err
}

// Scan returns a finite, forward, non-restartable iterator over tableID.
func (se *StorageEngine) Scan(tableID TableID) (*ScanIterator, error) {
	heap, err := se.tableHeap(tableID)
	if err != nil {
		return nil, err
	}
	return heap.Scan(), nil
}

// Stats returns a snapshot of buffer pool and disk manager activity
// counters.
func (se *StorageEngine) Stats() (BufferPoolStats, DiskManagerStats) {
	return se.pool.Stats(), se.disk.Stats()
}

// Close writes every resident dirty page back to disk, then releases the
// underlying disk manager's file lock and handle.
func (se *StorageEngine) Close() error {
	se.pool.mu.Lock()
	pageIDs := make([]PageID, 0, len(se.pool.pageTable))
	for pageID := range se.pool.pageTable {
		pageIDs = append(pageIDs, pageID)
	}
	se.pool.mu.Unlock()
	for _, pageID := range pageIDs {
		if err := se.pool.FlushPage(pageID); err != nil {
			se.disk.Close()
			return err
		}
	}
	return se.disk.Close()
}
