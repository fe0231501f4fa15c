package sqlgate

// Predicate returns the keyset condition selecting rows strictly after
// (Forward) or strictly before (Backward) c in sort order.
//
// For sort fields f1..fn the condition is the disjunction, over k = 1..n, of
//
//	f1 = v1 AND ... AND f(k-1) = v(k-1) AND fk <op> vk
//
// where <op> is > for an ascending field and < for a descending one when
// paging forward, and the opposite when paging backward. Sort fields are
// assumed non-null; the last field should be unique so the order is total.
func (c Cursor) Predicate(dir PageDirection) FilterExpr {
	if len(c.keys) == 0 {
		return nil
	}
	branches := make([]FilterExpr, len(c.keys))
	for k, key := range c.keys {
		terms := make([]FilterExpr, 0, k+1)
		for _, prev := range c.keys[:k] {
			terms = append(terms, CompareExpr{field: prev.field, op: OpEq, value: prev.value})
		}
		terms = append(terms, CompareExpr{field: key.field, op: strictOp(key.dir, dir), value: key.value})
		if len(terms) == 1 {
			branches[k] = terms[0]
		} else {
			branches[k] = AndExpr{exprs: terms}
		}
	}
	if len(branches) == 1 {
		return branches[0]
	}
	return OrExpr{exprs: branches}
}

// strictOp returns the comparison that moves away from the cursor.
func strictOp(sort Direction, page PageDirection) Operator {
	switch {
	case sort == Asc && page == Forward:
		return OpGt
	case sort == Desc && page == Forward:
		return OpLt
	case sort == Asc && page == Backward:
		return OpLt
	default:
		return OpGt
	}
}
