package blobdb

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// AttributeKind is the value type carried by an Attribute.
type AttributeKind uint8

const (
	KindString AttributeKind = iota
	KindUint32
	KindTime
	KindStringList
)

func (k AttributeKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindUint32:
		return "uint32"
	case KindTime:
		return "time"
	case KindStringList:
		return "string-list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Attribute is a typed, named field of a record.
type Attribute struct {
	Name   string
	Kind   AttributeKind
	String string
	Uint32 uint32
	Time   time.Time
	List   []string
}

// timeAttributes names attributes whose values are points in time.
var timeAttributes = map[string]bool{
	"timestamp":   true,
	"lastUpdated": true,
}

// ParseAttribute converts a script-supplied value into an Attribute. Time
// attributes accept RFC 3339 strings or seconds since the epoch; a nil time
// value yields the zero time, meaning "never". Numbers become uint32, lists
// of strings become string lists, everything else is stringified.
func ParseAttribute(name string, value any) (Attribute, error) {
	attr := Attribute{Name: name}

	if timeAttributes[name] {
		attr.Kind = KindTime
		t, err := parseTime(value)
		if err != nil {
			return Attribute{}, fmt.Errorf("attribute %q: %w", name, err)
		}
		attr.Time = t
		return attr, nil
	}

	switch v := value.(type) {
	case nil:
		attr.Kind = KindString
	case string:
		attr.Kind = KindString
		attr.String = v
	case bool:
		attr.Kind = KindString
		attr.String = strconv.FormatBool(v)
	case int64:
		return uintAttribute(attr, float64(v))
	case int:
		return uintAttribute(attr, float64(v))
	case float64:
		return uintAttribute(attr, v)
	case []any:
		attr.Kind = KindStringList
		attr.List = make([]string, 0, len(v))
		for _, item := range v {
			attr.List = append(attr.List, fmt.Sprint(item))
		}
	case []string:
		attr.Kind = KindStringList
		attr.List = append([]string(nil), v...)
	default:
		attr.Kind = KindString
		attr.String = fmt.Sprint(v)
	}
	return attr, nil
}

func uintAttribute(attr Attribute, v float64) (Attribute, error) {
	if v < 0 || v > math.MaxUint32 || math.IsNaN(v) {
		return Attribute{}, fmt.Errorf("attribute %q: number %v out of range", attr.Name, v)
	}
	attr.Kind = KindUint32
	attr.Uint32 = uint32(v)
	return attr, nil
}

func parseTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q: %w", v, err)
		}
		return t.UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case time.Time:
		return v.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value of type %T", value)
	}
}
