package storage

import "fmt"

// Key schema:
//
//	ord:<acceptedAt>:<orderID> → OrderRecord
//
// acceptedAt is zero-padded (20 digits) so a prefix scan returns orders in
// arrival order.
const prefixOrder = "ord:"

func orderKey(r OrderRecord) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixOrder, r.AcceptedAt, r.OrderID))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
