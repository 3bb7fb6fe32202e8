// Package store provides crash-safe order book persistence using JSON files.
//
// Each market's last composed book is stored as a separate file:
// book_<marketID>.json. Writes use atomic file replacement (write to .tmp,
// then rename) so a crash mid-save never leaves a partial file. The engine
// calls SaveBook after each successful refresh and LoadBook on startup, so a
// restarted service serves the previous book (marked stale) until the first
// refresh lands.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"arcade-book/pkg/types"
)

// ErrInvalidMarketID is returned for ids that cannot name a file in the store.
var ErrInvalidMarketID = errors.New("store: invalid market id")

// Store persists books to JSON files in a designated directory.
// All operations are mutex-protected to prevent concurrent file corruption.
type Store struct {
	dir string     // directory containing book_*.json files
	mu  sync.Mutex // serializes all file operations
}

// record is the on-disk shape of a saved book.
type record struct {
	MarketID string           `json:"market_id"`
	SavedAt  time.Time        `json:"saved_at"`
	Book     types.MarketSide `json:"book"`
}

// Open creates a store backed by the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// SaveBook atomically persists the composed book of a market.
func (s *Store) SaveBook(marketID string, side types.MarketSide) error {
	path, err := s.path(marketID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record{MarketID: marketID, SavedAt: time.Now().UTC(), Book: side})
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write book: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadBook restores the saved book of a market.
// Returns nil, nil if no book was saved yet.
func (s *Store) LoadBook(marketID string) (*types.MarketSide, error) {
	path, err := s.path(marketID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read book: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}
	return &rec.Book, nil
}

func (s *Store) path(marketID string) (string, error) {
	if marketID == "" || strings.ContainsAny(marketID, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMarketID, marketID)
	}
	return filepath.Join(s.dir, "book_"+marketID+".json"), nil
}
