package domain

import (
	"fmt"
	"strconv"
)

// stringifyID renders caller-supplied identifiers (JSON numbers or strings)
// into the canonical seed form: integers without a decimal point, so id 42
// buckets identically whether sent as 42 or "42".
func stringifyID(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
