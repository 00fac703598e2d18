package selection

// ListKey 分页列表
type ListKey string

const (
	ListDirectParts ListKey = "direct_parts"
	ListAssemblies  ListKey = "assemblies"
	ListProjects    ListKey = "projects"
)

// 默认分页大小
const (
	TreePageSize    = 10
	ProjectPageSize = 5
)

// TotalPages returns ceil(count/size), never less than 1.
func TotalPages(count, size int) int {
	if size <= 0 {
		size = 1
	}
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// Clamp 将页码限制在 [1, TotalPages]
func Clamp(page, count, size int) int {
	total := TotalPages(count, size)
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// PageBounds returns the half-open slice range of page within count items.
func PageBounds(page, count, size int) (start, end int) {
	if size <= 0 {
		size = 1
	}
	page = Clamp(page, count, size)
	start = (page - 1) * size
	if start > count {
		start = count
	}
	end = start + size
	if end > count {
		end = count
	}
	if start < 0 {
		start = 0
	}
	return start, end
}
