package render

import (
	"fmt"
	"strings"
)

// FilterChain helps construct a comma-joined chain of filters that runs as a
// single stage of the graph
type FilterChain struct {
	filters []string
}

// NewFilterChain creates an empty chain
func NewFilterChain() *FilterChain {
	return &FilterChain{
		filters: make([]string, 0, 2),
	}
}

// Crop adds a crop filter with explicit offsets
func (fc *FilterChain) Crop(width, height, x, y int) *FilterChain {
	if width <= 0 || height <= 0 {
		return fc
	}
	fc.filters = append(fc.filters, fmt.Sprintf("crop=w=%d:h=%d:x=%d:y=%d", width, height, x, y))
	return fc
}

// CenterCrop adds a crop filter centered on the incoming frame
func (fc *FilterChain) CenterCrop(width, height int) *FilterChain {
	if width <= 0 || height <= 0 {
		return fc
	}
	fc.filters = append(fc.filters,
		fmt.Sprintf("crop=w=%d:h=%d:x=(in_w-%d)/2:y=(in_h-%d)/2", width, height, width, height))
	return fc
}

// ScaleExpr adds a scale filter with expression dimensions evaluated per frame
func (fc *FilterChain) ScaleExpr(widthExpr, heightExpr string) *FilterChain {
	fc.filters = append(fc.filters,
		fmt.Sprintf("scale=w='%s':h='%s':eval=frame", widthExpr, heightExpr))
	return fc
}

// Custom adds a raw filter string
func (fc *FilterChain) Custom(filter string) *FilterChain {
	fc.filters = append(fc.filters, filter)
	return fc
}

// Len returns the number of filters in the chain
func (fc *FilterChain) Len() int {
	return len(fc.filters)
}

// Build returns the complete filter string joined with commas
func (fc *FilterChain) Build() string {
	if len(fc.filters) == 0 {
		return ""
	}
	return strings.Join(fc.filters, ",")
}
