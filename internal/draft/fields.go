package draft

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"venueadmin/pkg/domain"
)

// FieldSetter assigns a loosely typed input value (form text, JSON numbers,
// nil for a cleared input) to one field of a payload.
type FieldSetter[F any] func(fields *F, value any) error

// FieldSet maps field paths to setters.
type FieldSet[F any] map[string]FieldSetter[F]

// Names returns the editable field paths in lexical order.
func (s FieldSet[F]) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IntField builds a setter for a nullable integer field.
func IntField[F any](target func(*F) **int) FieldSetter[F] {
	return func(fields *F, value any) error {
		v, err := IntValue(value)
		if err != nil {
			return err
		}
		*target(fields) = v
		return nil
	}
}

// BoolField builds a setter for a boolean field.
func BoolField[F any](target func(*F) *bool) FieldSetter[F] {
	return func(fields *F, value any) error {
		v, err := BoolValue(value)
		if err != nil {
			return err
		}
		*target(fields) = v
		return nil
	}
}

// StringField builds a setter for a text field.
func StringField[F any](target func(*F) *string) FieldSetter[F] {
	return func(fields *F, value any) error {
		v, err := StringValue(value)
		if err != nil {
			return err
		}
		*target(fields) = v
		return nil
	}
}

// IntValue converts an input to a nullable integer. Empty text and nil clear
// the value.
func IntValue(value any) (*int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		return &v, nil
	case *int:
		if v == nil {
			return nil, nil
		}
		n := *v
		return &n, nil
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return nil, fmt.Errorf("%w: %d is out of range", domain.ErrInvalidValue, v)
		}
		n := int(v)
		return &n, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %v is not a whole number", domain.ErrInvalidValue, v)
		}
		// float64(math.MaxInt) rounds up to 2^63 on 64-bit platforms.
		if v < math.MinInt || v >= math.MaxInt {
			return nil, fmt.Errorf("%w: %v is out of range", domain.ErrInvalidValue, v)
		}
		n := int(v)
		return &n, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a whole number in range", domain.ErrInvalidValue, v.String())
		}
		if i < math.MinInt || i > math.MaxInt {
			return nil, fmt.Errorf("%w: %d is out of range", domain.ErrInvalidValue, i)
		}
		n := int(i)
		return &n, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a whole number", domain.ErrInvalidValue, v)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("%w: unsupported number type %T", domain.ErrInvalidValue, value)
	}
}

// BoolValue converts an input to a boolean. Nil reads as false.
func BoolValue(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", domain.ErrInvalidValue, v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: unsupported boolean type %T", domain.ErrInvalidValue, value)
	}
}

// StringValue converts an input to text. Nil reads as empty.
func StringValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported text type %T", domain.ErrInvalidValue, value)
	}
}
