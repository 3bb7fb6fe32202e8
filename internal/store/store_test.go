package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"arcade-book/pkg/types"
)

func testBook() types.MarketSide {
	side := types.EmptyMarketSide()
	side.Yes.Bids = []types.PriceLevel{{Price: 700000, Quantity: 10, Total: 7}}
	side.No.Asks = []types.PriceLevel{{Price: 300000, Quantity: 10, Total: 7}}
	return side
}

func TestSaveAndLoadBook(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.SaveBook("3004419219", testBook()); err != nil {
		t.Fatalf("SaveBook: %v", err)
	}

	loaded, err := s.LoadBook("3004419219")
	if err != nil {
		t.Fatalf("LoadBook: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadBook returned nil")
	}

	if len(loaded.Yes.Bids) != 1 || loaded.Yes.Bids[0] != (types.PriceLevel{Price: 700000, Quantity: 10, Total: 7}) {
		t.Errorf("yes bids = %+v", loaded.Yes.Bids)
	}
	if len(loaded.No.Asks) != 1 || loaded.No.Asks[0].Price != 300000 {
		t.Errorf("no asks = %+v", loaded.No.Asks)
	}
	if loaded.Yes.Asks == nil || len(loaded.Yes.Asks) != 0 {
		t.Errorf("empty side should load as [], got %#v", loaded.Yes.Asks)
	}
}

func TestLoadBookMissing(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadBook("nonexistent")
	if err != nil {
		t.Fatalf("LoadBook: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing book, got %+v", loaded)
	}
}

func TestSaveBookOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, _ := Open(dir)

	_ = s.SaveBook("42", testBook())
	if err := s.SaveBook("42", types.EmptyMarketSide()); err != nil {
		t.Fatalf("SaveBook: %v", err)
	}

	loaded, _ := s.LoadBook("42")
	if len(loaded.Yes.Bids) != 0 {
		t.Errorf("second save not applied: %+v", loaded.Yes.Bids)
	}

	// No leftover tmp file
	if _, err := os.Stat(filepath.Join(dir, "book_42.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("tmp file left behind: %v", err)
	}
}

func TestLoadBookCorrupt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, _ := Open(dir)

	if err := os.WriteFile(filepath.Join(dir, "book_7.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadBook("7"); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestInvalidMarketID(t *testing.T) {
	t.Parallel()
	s, _ := Open(t.TempDir())

	for _, id := range []string{"", "../etc", "a/b", "1.2"} {
		if err := s.SaveBook(id, testBook()); !errors.Is(err, ErrInvalidMarketID) {
			t.Errorf("SaveBook(%q) = %v, want ErrInvalidMarketID", id, err)
		}
		if _, err := s.LoadBook(id); !errors.Is(err, ErrInvalidMarketID) {
			t.Errorf("LoadBook(%q) = %v, want ErrInvalidMarketID", id, err)
		}
	}
}
