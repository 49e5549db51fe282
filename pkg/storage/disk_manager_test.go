package storage

import (
	"bytes"
	"path/filepath"
	"testing"
)

func newTestDiskManager(t *testing.T) *DiskManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	dm, err := NewDiskManager(path, 4)
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return dm
}

func TestDiskManagerAllocateWriteRead(t *testing.T) {
	dm := newTestDiskManager(t)

	id, err := dm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if id == InvalidPageID {
		t.Fatal("AllocatePage returned InvalidPageID")
	}

	data := make([]byte, PageSize)
	copy(data, []byte("hello disk manager"))
	if err := dm.Write(id, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok, err := dm.Read(id)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !ok {
		t.Fatal("Read reported page not present")
	}
	if !bytes.Equal(got, data) {
		t.Error("read bytes do not match written bytes")
	}
}

func TestDiskManagerReadUnallocatedPage(t *testing.T) {
	dm := newTestDiskManager(t)

	_, ok, err := dm.Read(PageID(999))
	if err != nil {
		t.Fatalf("Read of unallocated page returned error: %v", err)
	}
	if ok {
		t.Error("Read of unallocated page reported present")
	}
}

func TestDiskManagerAllocatePageIDsNeverZero(t *testing.T) {
	dm := newTestDiskManager(t)

	for i := 0; i < 3; i++ {
		id, err := dm.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage: %v", err)
		}
		if id == InvalidPageID {
			t.Fatalf("AllocatePage returned reserved InvalidPageID at iteration %d", i)
		}
	}
}

func TestDiskManagerDeallocateAndReuseOffset(t *testing.T) {
	dm := newTestDiskManager(t)

	id1, err := dm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if err := dm.DeallocatePage(id1); err != nil {
		t.Fatalf("DeallocatePage: %v", err)
	}

	// id1's offset must be recyclable, but the id itself is never reused.
	id2, err := dm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if id2 == id1 {
		t.Error("page id was reused after deallocation")
	}

	if _, ok, _ := dm.Read(id1); ok {
		t.Error("deallocated page still reads as present")
	}
}

func TestDiskManagerDeallocateUnknownPage(t *testing.T) {
	dm := newTestDiskManager(t)

	err := dm.DeallocatePage(PageID(42))
	if !IsKind(err, KindInvalidInput) {
		t.Errorf("expected KindInvalidInput, got %v", err)
	}
}

func TestDiskManagerGrowsBeyondInitialCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	dm, err := NewDiskManager(path, 2)
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	defer dm.Close()

	for i := 0; i < 10; i++ {
		if _, err := dm.AllocatePage(); err != nil {
			t.Fatalf("AllocatePage %d: %v", i, err)
		}
	}

	size, err := dm.DBFileSize()
	if err != nil {
		t.Fatalf("DBFileSize: %v", err)
	}
	if size < 10*PageSize {
		t.Errorf("DBFileSize() = %d, want at least %d", size, 10*PageSize)
	}
}

func TestDiskManagerStats(t *testing.T) {
	dm := newTestDiskManager(t)

	id, _ := dm.AllocatePage()
	data := make([]byte, PageSize)
	dm.Write(id, data)
	dm.Read(id)
	dm.DeallocatePage(id)

	stats := dm.Stats()
	if stats.PagesAllocated != 1 {
		t.Errorf("PagesAllocated = %d, want 1", stats.PagesAllocated)
	}
	if stats.PagesDeallocated != 1 {
		t.Errorf("PagesDeallocated = %d, want 1", stats.PagesDeallocated)
	}
	if stats.BytesWritten != PageSize {
		t.Errorf("BytesWritten = %d, want %d", stats.BytesWritten, PageSize)
	}
	if stats.BytesRead != PageSize {
		t.Errorf("BytesRead = %d, want %d", stats.BytesRead, PageSize)
	}
}

func TestDiskManagerExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	dm1, err := NewDiskManager(path, 4)
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	defer dm1.Close()

	if _, err := NewDiskManager(path, 4); err == nil {
		t.Error("expected second open of the same file to fail to acquire the lock")
	}
}
