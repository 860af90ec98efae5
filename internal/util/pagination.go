package util

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page converts 1-based page/size query values into an offset and a
// clamped limit.
func Page(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return (page - 1) * size, size
}
