package utils

import (
	"fmt"
	"strconv"
)

// ToInt64 converts various types to int64 using explicit type switching.
// Unparsable strings convert to zero; feed sources routinely contain blank or
// garbage numeric columns and those must never abort processing.
func ToInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint64:
		return int64(v)
	case uint32:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case string:
		i, _ := strconv.ParseInt(v, 10, 64)
		return i
	case []byte:
		i, _ := strconv.ParseInt(string(v), 10, 64)
		return i
	default:
		s := fmt.Sprintf("%v", v)
		i, _ := strconv.ParseInt(s, 10, 64)
		return i
	}
}

// KBToMBFloor converts a size in storage-KB to whole MB using integer floor
// division. Non-positive inputs convert to zero.
func KBToMBFloor(kb int64) int64 {
	if kb <= 0 {
		return 0
	}
	return kb / 1024
}
