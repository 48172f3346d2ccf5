package memory

import (
	"context"
	"sync"
	"time"

	"github.com/code-payments/escrow-server/pkg/escrow/data/account"
)

type store struct {
	mu      sync.RWMutex
	last    uint64
	records map[string]*account.Record
}

// New returns a new in memory account.Store
func New() account.Store {
	return &store{
		records: make(map[string]*account.Record),
	}
}

// SaveBatch implements account.Store.SaveBatch
func (s *store) SaveBatch(_ context.Context, records ...*account.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, record := range records {
		if _, ok := seen[record.Address]; ok {
			return account.ErrStaleVersion
		}
		seen[record.Address] = struct{}{}

		var stored uint64
		if item, ok := s.records[record.Address]; ok {
			stored = item.Version
		}
		if stored != record.Version {
			return account.ErrStaleVersion
		}
	}

	now := time.Now()
	for _, record := range records {
		item, ok := s.records[record.Address]
		if !ok {
			s.last++
			record.Id = s.last
			record.CreatedAt = now
		} else {
			record.Id = item.Id
			record.CreatedAt = item.CreatedAt
		}
		record.LastUpdatedAt = now
		record.Version++

		cloned := record.Clone()
		s.records[record.Address] = &cloned
	}

	return nil
}

// Get implements account.Store.Get
func (s *store) Get(_ context.Context, address string) (*account.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.records[address]
	if !ok {
		return nil, account.ErrAccountNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetMany implements account.Store.GetMany
func (s *store) GetMany(_ context.Context, addresses ...string) ([]*account.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []*account.Record
	for _, address := range addresses {
		item, ok := s.records[address]
		if !ok {
			continue
		}

		cloned := item.Clone()
		res = append(res, &cloned)
	}
	return res, nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = 0
	s.records = make(map[string]*account.Record)
}
