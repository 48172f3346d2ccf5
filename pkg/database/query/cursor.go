package query

import (
	"encoding/binary"
)

// Cursor is an opaque position in a paginated result set. Stores encode the
// record id of the last returned item.
type Cursor []byte

var EmptyCursor = Cursor([]byte{})

func ToCursor(val uint64) Cursor {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	return b
}

// ToUint64 decodes the cursor. An empty cursor decodes to zero.
func (c Cursor) ToUint64() uint64 {
	if len(c) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(c)
}
