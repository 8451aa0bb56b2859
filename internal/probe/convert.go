package probe

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// cimTime normalizes the two datetime shapes probe scripts produce:
// the CIM_DATETIME layout ("20240131093000.000000+000") from WMI
// properties and the "/Date(1706691600000)/" wrapper ConvertTo-Json
// emits for DateTime objects. Unparseable values degrade to nil rather
// than a bogus timestamp.
func cimTime(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "/Date(") || strings.HasPrefix(s, `\/Date(`) {
		inner := strings.TrimSuffix(strings.TrimPrefix(strings.Trim(s, `\`), "/Date("), ")/")
		inner = strings.TrimSuffix(inner, `)\/`)
		if ms, err := strconv.ParseInt(inner, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
		return nil
	}

	if len(s) >= 14 {
		if t, err := time.Parse("20060102150405", s[:14]); err == nil {
			return t.UTC()
		}
	}

	// Registry install dates come as bare "20240131"
	if len(s) == 8 {
		if t, err := time.Parse("20060102", s); err == nil {
			return t.UTC()
		}
	}

	return nil
}

// bytesToGB converts a byte count to gigabytes rounded to two decimals.
func bytesToGB(v any) any {
	f, ok := v.(float64)
	if !ok || f <= 0 {
		return nil
	}
	return math.Round(f/(1024*1024*1024)*100) / 100
}
