package models

// Page limits applied to list endpoints
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 200
)

// NormalizePage clamps limit and offset to sane values
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Page returns the window of items selected by limit and offset. The result
// never aliases items, so callers may hand it out while items stays cached.
func Page[T any](items []T, limit, offset int) []T {
	limit, offset = NormalizePage(limit, offset)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
