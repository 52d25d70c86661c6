package schema

// IDAllocator hands out row ids shared by every table of one conversion.
// The zero value is ready and starts at 1. It is not safe for concurrent use.
type IDAllocator struct {
	last uint64
}

// Next returns the next id
func (a *IDAllocator) Next() uint64 {
	a.last++
	return a.last
}

// Last returns the most recently allocated id, 0 if none
func (a *IDAllocator) Last() uint64 {
	return a.last
}
