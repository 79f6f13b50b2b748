// Package store provides crash-safe position persistence using JSON files.
//
// Each market's position is stored as a separate file: pos_<ticker>.json.
// A binary-options position is really two independent legs, YES and NO,
// each with its own contract count and cost basis; the on-disk record
// makes that split explicit (record.Yes / record.No) instead of mirroring
// the flat in-memory types.Position, and both legs are validated to have
// a non-negative contract count and cost basis, so a corrupted or
// hand-edited file is rejected on load rather than silently resurrecting
// a bad position after restart. The inventory tracker does not enforce
// this in memory: a leg it holds short (negative count) fails the same
// check. Writes use atomic file replacement (write to
// .tmp, then rename) to prevent corruption from partial writes or
// crashes mid-save. The bot calls SavePosition after each fill and on
// shutdown, and LoadPosition when a market is added to restore
// inventory state across restarts.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/newyorkcompute/kalshi-mm/pkg/types"
)

// Store persists positions to JSON files in a designated directory.
// All operations are mutex-protected to prevent concurrent file corruption.
type Store struct {
	dir string     // directory containing pos_*.json files
	mu  sync.Mutex // serializes all file operations
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

// recordVersion identifies the on-disk schema. Bumped whenever the leg
// layout changes so a future reader can tell old files apart from new ones.
const recordVersion = 1

// leg is one side (YES or NO) of a binary-options position as persisted
// to disk: a contract count and the cents paid to acquire it.
type leg struct {
	Contracts int `json:"contracts"`
	CostBasis int `json:"cost_basis_cents"`
}

// record is the on-disk shape of a saved position. It splits YES and NO
// into named legs rather than reusing types.Position's flat field names,
// since the two legs are independently validated and, in principle,
// independently migratable.
type record struct {
	Version  int  `json:"version"`
	Yes      leg  `json:"yes"`
	No       leg  `json:"no"`
	LastMark int  `json:"last_mark_cents"`
	HasMark  bool `json:"has_mark"`
}

// validateLeg rejects a leg whose contract count or cost basis is
// negative. The inventory tracker lets a leg's count go negative (a
// short) in memory; such a leg is rejected here.
func validateLeg(name string, l leg) error {
	if l.Contracts < 0 {
		return fmt.Errorf("%s leg: negative contract count %d", name, l.Contracts)
	}
	if l.CostBasis < 0 {
		return fmt.Errorf("%s leg: negative cost basis %d", name, l.CostBasis)
	}
	return nil
}

func toRecord(pos types.Position) record {
	return record{
		Version:  recordVersion,
		Yes:      leg{Contracts: pos.YesContracts, CostBasis: pos.YesCostBasis},
		No:       leg{Contracts: pos.NoContracts, CostBasis: pos.NoCostBasis},
		LastMark: pos.LastMark,
		HasMark:  pos.HasMark,
	}
}

func (r record) toPosition(ticker string) types.Position {
	return types.Position{
		Ticker:       ticker,
		YesContracts: r.Yes.Contracts,
		NoContracts:  r.No.Contracts,
		YesCostBasis: r.Yes.CostBasis,
		NoCostBasis:  r.No.CostBasis,
		LastMark:     r.LastMark,
		HasMark:      r.HasMark,
	}
}

// SavePosition atomically persists the current position for a market.
// It writes to a .tmp file first, then renames over the target to ensure
// the file is never left in a partial state (crash-safe). The position
// is rejected before it ever reaches disk if either leg violates the
// non-negative contracts/cost-basis invariant.
func (s *Store) SavePosition(marketID string, pos types.Position) error {
	rec := toRecord(pos)
	if err := validateLeg("yes", rec.Yes); err != nil {
		return fmt.Errorf("save position %s: %w", marketID, err)
	}
	if err := validateLeg("no", rec.No); err != nil {
		return fmt.Errorf("save position %s: %w", marketID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}

	path := filepath.Join(s.dir, "pos_"+marketID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadPosition restores position for a market from disk.
// Returns nil, nil if no saved position exists (fresh market). A file
// whose legs violate the non-negative invariant is treated as corrupt
// and returned as an error rather than handed to the caller.
func (s *Store) LoadPosition(marketID string) (*types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, "pos_"+marketID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read position: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal position: %w", err)
	}
	if err := validateLeg("yes", rec.Yes); err != nil {
		return nil, fmt.Errorf("load position %s: corrupt file: %w", marketID, err)
	}
	if err := validateLeg("no", rec.No); err != nil {
		return nil, fmt.Errorf("load position %s: corrupt file: %w", marketID, err)
	}

	pos := rec.toPosition(marketID)
	return &pos, nil
}
