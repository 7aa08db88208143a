package models

import (
	"strconv"

	"gorm.io/gorm"
)

// Page is one page of a listing plus the navigation facts a client needs.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"page"`
	NumPages    int   `json:"num_pages"`
	Count       int64 `json:"count"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// ResolvePage picks the page to show: a missing or non-numeric page is the
// first one, and a page past the end is the last one. There is always at
// least one page, even when count is zero.
func ResolvePage(raw string, count int64, perPage int) (number, numPages int) {
	numPages = 1
	if count > 0 {
		numPages = int((count + int64(perPage) - 1) / int64(perPage))
	}

	number, err := strconv.Atoi(raw)
	if err != nil {
		return 1, numPages
	}
	if number < 1 || number > numPages {
		return numPages, numPages
	}
	return number, numPages
}

// Paginate counts the rows matched by query and loads the requested page
// into a Page. Associations named in preload are only loaded for the page.
func Paginate[T any](query *gorm.DB, raw string, perPage int, preload ...string) (*Page[T], error) {
	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, err
	}

	number, numPages := ResolvePage(raw, count, perPage)
	items := make([]T, 0, perPage)
	if count > 0 {
		find := query.Offset((number - 1) * perPage).Limit(perPage)
		for _, assoc := range preload {
			find = find.Preload(assoc)
		}
		if err := find.Find(&items).Error; err != nil {
			return nil, err
		}
	}

	return &Page[T]{
		Items:       items,
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}, nil
}
