package query

import "strconv"

// PaginateQuery appends keyset pagination over the id column to a query of the
// form "SELECT ... WHERE (...)", where the brackets are required. Placeholders
// continue numbering after opts.
//
//	PaginateQuery("SELECT * FROM t WHERE (maker = $1)", []interface{}{maker}, ToCursor(5), 10, Ascending)
//	> "SELECT * FROM t WHERE (maker = $1) AND id > $2 ORDER BY id ASC LIMIT $3"
func PaginateQuery(query string, opts []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	if len(cursor) > 0 {
		placeholder := "$" + strconv.Itoa(len(opts)+1)
		if direction == Ascending {
			query += " AND id > " + placeholder
		} else {
			query += " AND id < " + placeholder
		}
		opts = append(opts, cursor.ToUint64())
	}

	if direction == Ascending {
		query += " ORDER BY id ASC"
	} else {
		query += " ORDER BY id DESC"
	}

	if limit > 0 {
		query += " LIMIT $" + strconv.Itoa(len(opts)+1)
		opts = append(opts, limit)
	}

	return query, opts
}

// DefaultPaginationHandlerWithLimit applies opts over ascending, cursorless
// defaults, rejecting limits above maxLimit. A zero limit means maxLimit.
func DefaultPaginationHandlerWithLimit(maxLimit uint64, opts ...Option) (*QueryOptions, error) {
	req := QueryOptions{
		Limit:     maxLimit,
		SortBy:    Ascending,
		Supported: CanLimitResults | CanSortBy | CanQueryByCursor,
	}
	if err := req.Apply(opts...); err != nil {
		return nil, err
	}

	if req.Limit == 0 {
		req.Limit = maxLimit
	}
	if req.Limit > maxLimit {
		return nil, ErrQueryNotSupported
	}

	return &req, nil
}
