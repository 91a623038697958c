package engine

import (
	"fmt"
	"sync"
	"testing"
)

func TestIDMapFirstWriteWins(t *testing.T) {
	im := NewIDMap()

	if !im.Put("TC-1", "100") {
		t.Fatal("first Put must succeed")
	}
	if im.Put("TC-1", "200") {
		t.Fatal("second Put for the same source id must be ignored")
	}

	got, ok := im.Get("TC-1")
	if !ok || got != "100" {
		t.Fatalf("Get() = %q, %v, want %q, true", got, ok, "100")
	}
}

func TestIDMapMissMeansNotMigrated(t *testing.T) {
	im := NewIDMap()
	if _, ok := im.Get("TC-404"); ok {
		t.Fatal("Get on an unknown id must miss")
	}
	if im.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", im.Len())
	}
}

func TestIDMapConcurrentPuts(t *testing.T) {
	im := NewIDMap()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			im.Put(fmt.Sprintf("TC-%d", i%10), fmt.Sprintf("%d", i))
		}(i)
	}
	wg.Wait()

	if im.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", im.Len())
	}
}

func TestIDMapSnapshotIsCopy(t *testing.T) {
	im := NewIDMap()
	im.Put("TC-1", "100")

	snap := im.Snapshot()
	snap["TC-1"] = "tampered"

	if got, _ := im.Get("TC-1"); got != "100" {
		t.Fatalf("Get() = %q, want %q after snapshot mutation", got, "100")
	}
}
