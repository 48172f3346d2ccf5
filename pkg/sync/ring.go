package sync

import (
	"encoding/binary"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring consistently hashes keys onto stripe indices in [0, stripes). Each
// stripe is placed on the ring replicas times to even out the distribution.
type ring struct {
	points *treemap.Map

	// first is the stripe at the lowest point, which owns hashes past the last
	// point. Looking it up on every wraparound would be O(log n).
	first int
}

func newRing(stripes int, replicas uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	replicaBytes := make([]byte, 4)
	for stripe := 0; stripe < stripes; stripe++ {
		seed, _ := murmur3.Sum128([]byte(fmt.Sprintf("lock%d", stripe)))
		seedBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(seedBytes, seed)

		for replica := uint32(0); replica < uint32(replicas); replica++ {
			binary.LittleEndian.PutUint32(replicaBytes, replica)

			hasher := murmur3.New128()
			_, _ = hasher.Write(seedBytes)
			_, _ = hasher.Write(replicaBytes)
			point, _ := hasher.Sum128()

			points.Put(int64(point), stripe)
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

func (r *ring) shard(key []byte) int {
	hash, _ := murmur3.Sum128(key)
	if _, stripe := r.points.Ceiling(int64(hash)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}
