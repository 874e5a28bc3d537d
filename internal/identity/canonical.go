// Package identity provides canonical encoding and deterministic identity
// derivation. Every hash-bearing identifier in the system (pipeline ID, node
// UUID, run-space spec ID) is computed over bytes produced by Canonicalize,
// so the encoding rules live here and nowhere else.
package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Canonicalize encodes a value into deterministic bytes. Object keys are
// sorted, array order is preserved, and scalars use fixed textual forms:
// strings are JSON-escaped UTF-8, integers are decimal, booleans and null
// are literals, floats use the shortest round-trip decimal form, except
// that whole-valued floats below 1e15 in magnitude are written as integers.
func Canonicalize(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, value, "$"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalFloat formats a float the way identity-bearing positions require.
// Defined once so sweep signatures and graph hashes agree byte for byte.
func CanonicalFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCanonical(buf *bytes.Buffer, value any, path string) error {
	if value == nil {
		buf.WriteString("null")
		return nil
	}

	switch v := value.(type) {
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return writeString(buf, v, path)
	case int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
		return nil
	case int8, int16, int32, int64:
		buf.WriteString(strconv.FormatInt(reflect.ValueOf(v).Int(), 10))
		return nil
	case uint, uint8, uint16, uint32, uint64:
		buf.WriteString(strconv.FormatUint(reflect.ValueOf(v).Uint(), 10))
		return nil
	case float32:
		return writeFloat(buf, float64(v), path)
	case float64:
		return writeFloat(buf, v, path)
	case json.Number:
		buf.WriteString(v.String())
		return nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		return writeMap(buf, rv, path)
	case reflect.Slice, reflect.Array:
		return writeSlice(buf, rv, path)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return writeCanonical(buf, rv.Elem().Interface(), path)
	default:
		return semerrors.NewCanonicalizationError(path,
			fmt.Sprintf("unsupported value of type %T", value), nil)
	}
}

func writeString(buf *bytes.Buffer, s, path string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return semerrors.NewCanonicalizationError(path, "string is not encodable", err)
	}
	buf.Write(encoded)
	return nil
}

func writeFloat(buf *bytes.Buffer, v float64, path string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return semerrors.NewCanonicalizationError(path, "non-finite float", nil)
	}
	// Whole-valued floats encode as integers so a spec written as `2` and a
	// resolved value of 2.0 hash identically.
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		buf.WriteString(strconv.FormatInt(int64(v), 10))
		return nil
	}
	buf.WriteString(CanonicalFloat(v))
	return nil
}

func writeMap(buf *bytes.Buffer, rv reflect.Value, path string) error {
	if rv.Type().Key().Kind() != reflect.String {
		return semerrors.NewCanonicalizationError(path, "map keys must be strings", nil)
	}

	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k, path); err != nil {
			return err
		}
		buf.WriteByte(':')
		elem := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
		if err := writeCanonical(buf, elem.Interface(), path+"."+k); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeSlice(buf *bytes.Buffer, rv reflect.Value, path string) error {
	buf.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}
