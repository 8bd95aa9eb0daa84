// Package diagnostics content-hashes structured diagnostic payloads and
// compares diagnostic records across incidents. The hash is a dedup signal,
// not a security boundary: the sole correctness property is that structurally
// identical payloads serialize, and therefore hash, identically.
package diagnostics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SerializationError reports a result blob with no deterministic canonical
// form (cyclic references, or a value with no stable string representation).
// Callers must not repair the blob and retry; the record is rejected.
type SerializationError struct {
	Msg string
}

func (e *SerializationError) Error() string {
	return "canonical serialization: " + e.Msg
}

// Hash serializes the blob to its canonical form (mapping keys sorted
// lexicographically at every nesting level, non-primitive scalars coerced to
// strings) and returns the lowercase hex SHA-256 of the encoding.
func Hash(blob interface{}) (string, error) {
	canonical, err := CanonicalString(blob)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalString renders the value as a deterministic key-sorted encoding.
func CanonicalString(value interface{}) (string, error) {
	var b strings.Builder
	if err := writeCanonical(&b, reflect.ValueOf(value), make(map[uintptr]struct{})); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v reflect.Value, onPath map[uintptr]struct{}) error {
	if !v.IsValid() {
		b.WriteString("null")
		return nil
	}

	// Coerce well-known non-primitive scalars before generic traversal.
	if v.CanInterface() {
		switch concrete := v.Interface().(type) {
		case time.Time:
			return writeString(b, concrete.UTC().Format(time.RFC3339Nano))
		case time.Duration:
			return writeString(b, concrete.String())
		case []byte:
			return writeString(b, string(concrete))
		case fmt.Stringer:
			return writeString(b, concrete.String())
		case error:
			return writeString(b, concrete.Error())
		}
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			b.WriteString("null")
			return nil
		}
		return writeCanonical(b, v.Elem(), onPath)
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
		return nil
	case reflect.Float32, reflect.Float64:
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
		return nil
	case reflect.String:
		return writeString(b, v.String())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice {
			if v.IsNil() {
				b.WriteString("null")
				return nil
			}
			if err := enterContainer(v.Pointer(), onPath); err != nil {
				return err
			}
			defer delete(onPath, v.Pointer())
		}
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, v.Index(i), onPath); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("null")
			return nil
		}
		if err := enterContainer(v.Pointer(), onPath); err != nil {
			return err
		}
		defer delete(onPath, v.Pointer())
		return writeMap(b, v, onPath)
	default:
		return &SerializationError{Msg: fmt.Sprintf("unsupported value of type %s", v.Type())}
	}
}

func writeMap(b *strings.Builder, v reflect.Value, onPath map[uintptr]struct{}) error {
	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKeyString(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, entry{key: key, value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeString(b, e.key); err != nil {
			return err
		}
		b.WriteByte(':')
		if err := writeCanonical(b, e.value, onPath); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func mapKeyString(key reflect.Value) (string, error) {
	for key.Kind() == reflect.Interface || key.Kind() == reflect.Ptr {
		if key.IsNil() {
			return "", &SerializationError{Msg: "nil mapping key"}
		}
		key = key.Elem()
	}
	switch key.Kind() {
	case reflect.String:
		return key.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(key.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(key.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(key.Float(), 'g', -1, 64), nil
	default:
		return "", &SerializationError{Msg: fmt.Sprintf("mapping key of type %s has no string form", key.Type())}
	}
}

func writeString(b *strings.Builder, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return &SerializationError{Msg: err.Error()}
	}
	b.Write(encoded)
	return nil
}

func enterContainer(ptr uintptr, onPath map[uintptr]struct{}) error {
	if _, seen := onPath[ptr]; seen {
		return &SerializationError{Msg: "cyclic structure"}
	}
	onPath[ptr] = struct{}{}
	return nil
}
