package calendar

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageMeta: метаданные страницы в ответах списков.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// Page описывает одну страницу элементов.
type Page[T any] struct {
	Items    []T // элементы на текущей странице
	Page     int // номер страницы (с 1)
	PageSize int // количество элементов на странице
	HasNext  bool
	HasPrev  bool
	Total    int // общее количество элементов
}

// NormalizePage приводит page/limit к допустимым значениям.
// page нумеруется с 1, limit ограничен MaxPageSize.
func NormalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Offset возвращает смещение первой записи страницы.
func Offset(page, limit int) int {
	page, limit = NormalizePage(page, limit)
	return (page - 1) * limit
}

// NewPageMeta считает число страниц по общему количеству.
func NewPageMeta(page, limit int, total int64) PageMeta {
	page, limit = NormalizePage(page, limit)
	pages := int((total + int64(limit) - 1) / int64(limit))
	return PageMeta{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Paginate возвращает срез items для указанной страницы и метаданные.
// page нумеруется с 1. При некорректных значениях используются дефолты.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	page, pageSize = NormalizePage(page, pageSize)

	total := len(items)

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	return Page[T]{
		Items:    items[start:end],
		Page:     page,
		PageSize: pageSize,
		HasNext:  end < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}

// Meta: метаданные страницы в формате ответа API.
func (p Page[T]) Meta() PageMeta {
	return NewPageMeta(p.Page, p.PageSize, int64(p.Total))
}
