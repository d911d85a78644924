// Package utils holds small parsing helpers shared by the HTTP handlers.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as an int, returning def when s is blank or invalid.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParams turns raw page and page_size query values into a 1-based page
// and a size within [1, maxSize]. Missing or invalid values use 1 and defSize.
func PageParams(page, size string, defSize, maxSize int) (int, int) {
	p := AtoiDefault(page, 1)
	if p < 1 {
		p = 1
	}
	s := AtoiDefault(size, defSize)
	switch {
	case s < 1:
		s = 1
	case s > maxSize:
		s = maxSize
	}
	return p, s
}

// TotalPages is ceil(total/size); zero when size is not positive.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// ParseID parses a positive numeric path id.
func ParseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
