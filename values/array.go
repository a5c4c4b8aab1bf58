package values

// Len returns the number of elements in an Array or Set value.
func (v Value) Len() int {
	if v.Seq == nil {
		return 0
	}
	return len(v.Seq.Items)
}

// At returns the element at index i of an Array or Set value.
func (v Value) At(i int) Value {
	return v.Seq.Items[i]
}

// ArrayAppend returns a new Array value with elem appended. Arrays permit
// duplicates.
func ArrayAppend(arr Value, elem Value) Value {
	items := make([]Value, len(arr.Seq.Items)+1)
	copy(items, arr.Seq.Items)
	items[len(items)-1] = elem
	return NewArray(arr.Seq.ElemType, items)
}

// ArraySet returns a new Array value with index i replaced by elem.
func ArraySet(arr Value, i int, elem Value) Value {
	items := make([]Value, len(arr.Seq.Items))
	copy(items, arr.Seq.Items)
	items[i] = elem
	return NewArray(arr.Seq.ElemType, items)
}
