package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Missing: nil, pusty string, NaN.
func Missing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []byte:
		return len(strings.TrimSpace(string(x))) == 0
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case *float64:
		return x == nil || math.IsNaN(*x)
	case *string:
		return x == nil || strings.TrimSpace(*x) == ""
	case *time.Time:
		return x == nil
	}
	return false
}

// Float konwertuje wartość na liczbę; ok=false gdy brak albo nie da się
// sparsować (odpowiednik to_numeric(errors="coerce")).
func Float(v any) (float64, bool) {
	if Missing(v) {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case *float64:
		f = *x
	case decimal.Decimal:
		f = x.InexactFloat64()
	case primitive.Decimal128:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return 0, false
		}
		f = d.InexactFloat64()
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case []byte:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FloatPtr jak Float, ale brak = nil.
func FloatPtr(v any) *float64 {
	f, ok := Float(v)
	if !ok {
		return nil
	}
	return &f
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// zamień ewentualny przecinek na kropkę
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Int64 – liczby całkowite (id); akceptuje też "12.0".
func Int64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	}
	f, ok := Float(v)
	if !ok || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// String zwraca tekst bez białych znaków na brzegach; brak = "".
func String(v any) string {
	if Missing(v) {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case *string:
		return strings.TrimSpace(*x)
	case primitive.ObjectID:
		return x.Hex()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Bool: true/false, "Y"/"N", "t"/"f", 1/0.
func Bool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case nil:
		return false, false
	}
	switch strings.TrimSpace(strings.ToUpper(String(v))) {
	case "Y", "T", "TRUE", "1", "TAK", "SI", "SÍ":
		return true, true
	case "N", "F", "FALSE", "0", "NIE", "NO":
		return false, true
	}
	return false, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
}

// ErrMissingTime zwracany przez Time, gdy wartości brak.
var ErrMissingTime = fmt.Errorf("missing time value")

// Time parsuje datę/czas z typów, które dają nam sterowniki (time.Time,
// primitive.DateTime z Mongo) albo z tekstu (CSV).
func Time(v any) (time.Time, error) {
	if Missing(v) {
		return time.Time{}, ErrMissingTime
	}
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		return *x, nil
	case primitive.DateTime:
		return x.Time().UTC(), nil
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC(), nil
	case []byte:
		return parseTime(string(x))
	case string:
		return parseTime(x)
	}
	return time.Time{}, fmt.Errorf("unsupported time value %v (%T)", v, v)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}

// Len zwraca długość listy (slice/array); ok=false dla nie-list.
func Len(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case primitive.A:
		return len(x), true
	case []any:
		return len(x), true
	case string, []byte:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}

// Date obcina czas do dnia kalendarzowego (w strefie wartości).
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
