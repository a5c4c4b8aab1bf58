package values

import "github.com/elaraai/east/types"

// NewDict builds a Dict value from parallel key/value slices, eliminating
// duplicate keys by value equality under keyType (last write wins) while
// preserving first-seen insertion order.
func NewDict(keyType, valType *types.Descriptor, keys, vals []Value) Value {
	d := &DictData{KeyType: keyType, ValType: valType, refcount: 1}
	for i, k := range keys {
		dictPut(d, k, vals[i])
	}
	return Value{Kind: KindDict, Dict: d}
}

func dictIndexOf(d *DictData, key Value) int {
	for i, k := range d.Keys {
		if Equal(k, key) {
			return i
		}
	}
	return -1
}

func dictPut(d *DictData, key, val Value) {
	if idx := dictIndexOf(d, key); idx >= 0 {
		d.Vals[idx] = val
		return
	}
	d.Keys = append(d.Keys, key)
	d.Vals = append(d.Vals, val)
}

// DictLen returns the number of entries.
func DictLen(dict Value) int { return len(dict.Dict.Keys) }

// DictGet looks up key, returning (value, true) or (zero, false).
func DictGet(dict Value, key Value) (Value, bool) {
	idx := dictIndexOf(dict.Dict, key)
	if idx < 0 {
		return Value{}, false
	}
	return dict.Dict.Vals[idx], true
}

// DictInsert returns a new Dict with key bound to val (overwriting any
// existing binding for an equal key).
func DictInsert(dict Value, key, val Value) Value {
	d := &DictData{KeyType: dict.Dict.KeyType, ValType: dict.Dict.ValType, refcount: 1}
	d.Keys = append(d.Keys, dict.Dict.Keys...)
	d.Vals = append(d.Vals, dict.Dict.Vals...)
	dictPut(d, key, val)
	return Value{Kind: KindDict, Dict: d}
}

// DictRemove returns a new Dict with key removed, if present.
func DictRemove(dict Value, key Value) Value {
	idx := dictIndexOf(dict.Dict, key)
	if idx < 0 {
		return dict
	}
	d := &DictData{KeyType: dict.Dict.KeyType, ValType: dict.Dict.ValType, refcount: 1}
	d.Keys = append(append([]Value{}, dict.Dict.Keys[:idx]...), dict.Dict.Keys[idx+1:]...)
	d.Vals = append(append([]Value{}, dict.Dict.Vals[:idx]...), dict.Dict.Vals[idx+1:]...)
	return Value{Kind: KindDict, Dict: d}
}
