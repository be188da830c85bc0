package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// UUIDPattern is the lowercase canonical UUID form accepted by KindUUID fields.
const UUIDPattern = `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`

var uuidRe = regexp.MustCompile(UUIDPattern)

// coerce converts a raw scalar into the canonical Go value for kind.
// The returned message is empty on success.
func coerce(kind Kind, v interface{}) (interface{}, string) {
	switch kind {
	case KindString, KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, "value is not a valid string"
		}
		return s, ""

	case KindInteger:
		i, err := toInt64(v)
		if err != nil {
			return nil, "value is not a valid integer"
		}
		return i, ""

	case KindNumber:
		if _, isBool := v.(bool); isBool {
			return nil, "value is not a valid number"
		}
		if d, isDec := v.(decimal.Decimal); isDec {
			return d.InexactFloat64(), ""
		}
		f, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, "value is not a valid number"
		}
		return f, ""

	case KindDecimal:
		d, err := toDecimal(v)
		if err != nil {
			return nil, "value is not a valid decimal"
		}
		return d, ""

	case KindBoolean:
		switch b := v.(type) {
		case bool:
			return b, ""
		case string:
			parsed, err := cast.ToBoolE(strings.ToLower(strings.TrimSpace(b)))
			if err != nil {
				return nil, "value is not a valid boolean"
			}
			return parsed, ""
		case float64, int, int64:
			f := cast.ToFloat64(b)
			if f != 0 && f != 1 {
				return nil, "value is not a valid boolean"
			}
			return f == 1, ""
		default:
			return nil, "value is not a valid boolean"
		}

	case KindDateTime:
		t, err := toTime(v)
		if err != nil {
			return nil, "value is not a valid datetime"
		}
		return t, ""

	case KindDate:
		t, err := toTime(v)
		if err != nil {
			return nil, "value is not a valid date"
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), ""

	case KindUUID:
		switch id := v.(type) {
		case uuid.UUID:
			return id.String(), ""
		case string:
			s := strings.TrimSpace(id)
			if !uuidRe.MatchString(s) {
				return nil, "value is not a valid uuid"
			}
			return s, ""
		default:
			return nil, "value is not a valid uuid"
		}

	case KindAny:
		return v, ""
	}
	return nil, fmt.Sprintf("unsupported field kind %q", kind)
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case bool:
		return 0, fmt.Errorf("bool is not an integer")
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%v has a fractional part", n)
		}
		return int64(n), nil
	case float32:
		return toInt64(float64(n))
	case json.Number:
		return n.Int64()
	case string:
		return cast.ToInt64E(strings.TrimSpace(n))
	}
	return cast.ToInt64E(v)
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("%v is not finite", n)
		}
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case bool:
		return decimal.Zero, fmt.Errorf("bool is not a decimal")
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(i), nil
}

func toTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := cast.ToTimeInDefaultLocationE(strings.TrimSpace(t), time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}
