package metrics

import (
	"sort"
	"strings"
)

// ErrorRow is one line of an error breakdown.
type ErrorRow struct {
	Tag   string `json:"tag" yaml:"tag"`
	Count int64  `json:"count" yaml:"count"`
}

// FlattenErrors orders an error map by descending count, then tag.
func FlattenErrors(errs map[string]int64) []ErrorRow {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]ErrorRow, 0, len(errs))
	for tag, count := range errs {
		rows = append(rows, ErrorRow{Tag: tag, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Tag < rows[j].Tag
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// DescribeTag returns a short human label for an outcome tag.
func DescribeTag(tag string) string {
	switch {
	case tag == "payment_declined":
		return "Payment declined by authorizer"
	case tag == "cart_id_missing":
		return "Create response without cart_id"
	case tag == "timeout":
		return "Request timed out"
	case tag == "connection_error":
		return "Connection failed"
	case strings.HasPrefix(tag, "cart_creation_"):
		return "Create cart returned HTTP " + strings.TrimPrefix(tag, "cart_creation_")
	case strings.HasPrefix(tag, "add_item_"):
		return "Add item returned HTTP " + strings.TrimPrefix(tag, "add_item_")
	case strings.HasPrefix(tag, "checkout_"):
		return "Checkout returned HTTP " + strings.TrimPrefix(tag, "checkout_")
	case strings.HasPrefix(tag, "exception_"):
		return "Client error (" + strings.TrimPrefix(tag, "exception_") + ")"
	default:
		return tag
	}
}
