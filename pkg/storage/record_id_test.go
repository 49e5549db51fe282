package storage

import "testing"

func TestRecordIDUint64RoundTrip(t *testing.T) {
	rid := NewRecordID(42, 7)
	got := RecordIDFromUint64(rid.Uint64())
	if got != rid {
		t.Errorf("round trip: got %+v, want %+v", got, rid)
	}
}

func TestRecordIDUint64Encoding(t *testing.T) {
	rid := NewRecordID(1, 2)
	want := uint64(1)<<32 | 2
	if got := rid.Uint64(); got != want {
		t.Errorf("Uint64() = %d, want %d", got, want)
	}
}

func TestRecordIDOrdering(t *testing.T) {
	cases := []struct {
		a, b RecordID
		less bool
	}{
		{NewRecordID(1, 5), NewRecordID(2, 0), true},
		{NewRecordID(2, 0), NewRecordID(1, 5), false},
		{NewRecordID(1, 0), NewRecordID(1, 1), true},
		{NewRecordID(1, 1), NewRecordID(1, 1), false},
	}
	for _, c := range cases {
		if got := c.a.Less(c.b); got != c.less {
			t.Errorf("%+v.Less(%+v) = %v, want %v", c.a, c.b, got, c.less)
		}
	}
}

func TestRecordIDCompare(t *testing.T) {
	if NewRecordID(1, 0).Compare(NewRecordID(1, 1)) != -1 {
		t.Error("expected -1")
	}
	if NewRecordID(1, 1).Compare(NewRecordID(1, 0)) != 1 {
		t.Error("expected 1")
	}
	if NewRecordID(1, 1).Compare(NewRecordID(1, 1)) != 0 {
		t.Error("expected 0")
	}
}
