package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"billpay-sim/internal/models"
)

var (
	// ErrNotFound means no record matched the identifier tuple.
	ErrNotFound = errors.New("record not found")
	// ErrBillNotFound means the record exists but owns no such bill.
	ErrBillNotFound = errors.New("bill not found")
)

// Store is a flat JSON-file record store. Every operation is a
// whole-store read (or read-modify-write) under a single mutex, which
// serializes concurrent pay requests against the same file.
type Store struct {
	mu      sync.Mutex
	path    string
	verbose bool
}

// Open validates the data file and returns a store backed by it.
// Duplicate identifier tuples are rejected here rather than silently
// resolving to an arbitrary record at lookup time.
func Open(path string, verbose bool) (*Store, error) {
	s := &Store{path: path, verbose: verbose}

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	if err := checkDuplicates(records); err != nil {
		return nil, err
	}

	if verbose {
		log.Printf("[STORE] Opened %s (%d records)", path, len(records))
	}
	return s, nil
}

func (s *Store) read() ([]models.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %v", err)
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %v", err)
	}
	return records, nil
}

func (s *Store) write(records []models.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %v", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %v", err)
	}
	return nil
}

func checkDuplicates(records []models.Record) error {
	seen := make(map[string]bool, len(records))
	for i := range records {
		key := records[i].Key()
		if seen[key] {
			return fmt.Errorf("duplicate identifier tuple %q in data file", key)
		}
		seen[key] = true
	}
	return nil
}

// Sections returns the distinct section values in the store, sorted.
func (s *Store) Sections() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var sections []string
	for i := range records {
		if !seen[records[i].Section] {
			seen[records[i].Section] = true
			sections = append(sections, records[i].Section)
		}
	}
	sort.Strings(sections)
	return sections, nil
}

// Lookup resolves an identifier tuple to its normalized record.
func (s *Store) Lookup(consumerNumber, section string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].ConsumerNumber == consumerNumber && records[i].Section == section {
			normalized := records[i].Normalized()
			return &normalized, nil
		}
	}
	return nil, ErrNotFound
}

// MarkPaid transitions a bill to PAID and persists the store. It is the
// only writer of bill status. Marking an already-PAID bill is a no-op,
// not an error. Legacy flat records are rewritten in bills-array form.
func (s *Store) MarkPaid(consumerNumber, section, billID string) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].ConsumerNumber != consumerNumber || records[i].Section != section {
			continue
		}

		records[i] = records[i].Normalized()
		bill := records[i].FindBill(billID)
		if bill == nil {
			return nil, ErrBillNotFound
		}

		if bill.Status == models.BillPaid {
			paid := *bill
			return &paid, nil
		}

		bill.Status = models.BillPaid
		if err := s.write(records); err != nil {
			return nil, err
		}

		if s.verbose {
			log.Printf("[STORE] Marked bill %s paid for %s/%s", billID, consumerNumber, section)
		}

		paid := *bill
		return &paid, nil
	}
	return nil, ErrNotFound
}
