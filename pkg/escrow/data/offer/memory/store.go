package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/escrow-server/pkg/database/query"
	"github.com/code-payments/escrow-server/pkg/escrow/data/offer"
)

type ById []*offer.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.RWMutex
	last    uint64
	records []*offer.Record
}

// New returns a new in memory offer.Store
func New() offer.Store {
	return &store{}
}

// Put implements offer.Store.Put
func (s *store) Put(_ context.Context, data *offer.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.Address == data.Address {
			return offer.ErrOfferExists
		}
		if item.Maker == data.Maker && item.OfferId == data.OfferId {
			return offer.ErrOfferExists
		}
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	cloned := data.Clone()
	s.records = append(s.records, &cloned)

	return nil
}

// GetByAddress implements offer.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*offer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.records {
		if item.Address == address {
			cloned := item.Clone()
			return &cloned, nil
		}
	}
	return nil, offer.ErrOfferNotFound
}

// GetByMakerAndId implements offer.Store.GetByMakerAndId
func (s *store) GetByMakerAndId(_ context.Context, maker string, offerId uint64) (*offer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.records {
		if item.Maker == maker && item.OfferId == offerId {
			cloned := item.Clone()
			return &cloned, nil
		}
	}
	return nil, offer.ErrOfferNotFound
}

// GetAllByMaker implements offer.Store.GetAllByMaker
func (s *store) GetAllByMaker(_ context.Context, maker string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*offer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*offer.Record
	for _, item := range s.records {
		if item.Maker == maker {
			items = append(items, item)
		}
	}

	res := s.filter(items, cursor, limit, direction)
	if len(res) == 0 {
		return nil, offer.ErrOfferNotFound
	}

	cloned := make([]*offer.Record, len(res))
	for i, item := range res {
		c := item.Clone()
		cloned[i] = &c
	}
	return cloned, nil
}

func (s *store) filter(items []*offer.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*offer.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*offer.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	} else {
		sort.Sort(ById(res))
	}

	if limit > 0 && len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = 0
	s.records = nil
}
