package ledger

import (
	"encoding/base64"
	"strconv"
	"unicode/utf8"

	"arcade-book/pkg/types"
)

// Indexer value type discriminants.
const (
	TypeBytes uint64 = 1
	TypeUint  uint64 = 2
)

// ownerKey is the global-state field holding an order owner's public key.
const ownerKey = "owner"

// Kind identifies which member of a Value is set.
type Kind int

const (
	KindText Kind = iota + 1
	KindBytes
	KindAddress
	KindUint
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindAddress:
		return "address"
	case KindUint:
		return "uint"
	default:
		return "invalid"
	}
}

// Value is one decoded global-state value: UTF-8 text, raw bytes, a rendered
// address, or an unsigned integer. Construct with TextValue, BytesValue,
// AddressValue or UintValue.
type Value struct {
	kind Kind
	text string
	raw  []byte
	num  uint64
}

func TextValue(s string) Value    { return Value{kind: KindText, text: s} }
func BytesValue(b []byte) Value   { return Value{kind: KindBytes, raw: b} }
func AddressValue(a string) Value { return Value{kind: KindAddress, text: a} }
func UintValue(n uint64) Value    { return Value{kind: KindUint, num: n} }

// Kind returns the member that is set.
func (v Value) Kind() Kind { return v.kind }

// Text returns the string form of a text or address value.
func (v Value) Text() (string, bool) {
	if v.kind != KindText && v.kind != KindAddress {
		return "", false
	}
	return v.text, true
}

// Bytes returns the raw bytes of a bytes value.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.raw, true
}

// Uint returns the integer of a uint value.
func (v Value) Uint() (uint64, bool) {
	if v.kind != KindUint {
		return 0, false
	}
	return v.num, true
}

// String renders the value for display: text and addresses as-is, bytes as
// base64, integers in decimal.
func (v Value) String() string {
	switch v.kind {
	case KindText, KindAddress:
		return v.text
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.raw)
	case KindUint:
		return strconv.FormatUint(v.num, 10)
	default:
		return ""
	}
}

// State is a decoded application global state, keyed by field name.
type State map[string]Value

// Uint returns the integer field key, or 0 when absent or not an integer.
func (s State) Uint(key string) uint64 {
	n, _ := s[key].Uint()
	return n
}

// Has reports whether key is present.
func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// DecodeStats counts what a decode pass kept and dropped.
type DecodeStats struct {
	Kept    int
	Dropped int
}

// DecodeGlobalState decodes indexer key-value entries into a State.
// Malformed entries (bad base64, non-UTF-8 keys, unknown type tags) are
// skipped; decoding never fails.
func DecodeGlobalState(entries []types.TealKeyValue) State {
	st, _ := DecodeGlobalStateWithStats(entries)
	return st
}

// DecodeGlobalStateWithStats is DecodeGlobalState that also reports how many
// entries were dropped.
func DecodeGlobalStateWithStats(entries []types.TealKeyValue) (State, DecodeStats) {
	st := make(State, len(entries))
	var stats DecodeStats

	for _, e := range entries {
		key, ok := decodeKey(e.Key)
		if !ok {
			stats.Dropped++
			continue
		}

		v, ok := decodeValue(key, e.Value)
		if !ok {
			stats.Dropped++
			continue
		}
		st[key] = v
		stats.Kept++
	}
	return st, stats
}

func decodeKey(b64 string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

func decodeValue(key string, tv types.TealValue) (Value, bool) {
	switch tv.Type {
	case TypeBytes:
		raw, err := base64.StdEncoding.DecodeString(tv.Bytes)
		if err != nil {
			return Value{}, false
		}
		if key == ownerKey && len(raw) == PublicKeyLen {
			addr, err := EncodeAddress(raw)
			if err != nil {
				return BytesValue(raw), true
			}
			return AddressValue(addr), true
		}
		if utf8.Valid(raw) {
			return TextValue(string(raw)), true
		}
		return BytesValue(raw), true
	case TypeUint:
		return UintValue(tv.Uint), true
	default:
		return Value{}, false
	}
}
