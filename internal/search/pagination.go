package search

import "strconv"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxResultWindow is Elasticsearch's default index.max_result_window.
	MaxResultWindow = 10000
)

// Page converts 1-based page/size query values into an offset and limit.
// Out-of-range values fall back to the first page and the default size;
// pages past the result window clamp to the last reachable one.
func Page(pageParam, sizeParam string) (page, from, size int) {
	page = parseIntDefault(pageParam, 1)
	size = parseIntDefault(sizeParam, DefaultPageSize)
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if last := MaxResultWindow / size; page > last {
		page = last
	}
	return page, (page - 1) * size, size
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
