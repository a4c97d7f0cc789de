package domain

// DataType classifies the shape of a collected field value.
type DataType string

const (
	DataTypeString   DataType = "string"
	DataTypeNumber   DataType = "number"
	DataTypeBoolean  DataType = "boolean"
	DataTypeDate     DataType = "date"
	DataTypeCurrency DataType = "currency"
)

// DataItem is one named field's current value plus whether downstream
// processing requires it. Value is a pointer so "no value supplied" (nil)
// stays distinct from an explicit empty string, which callers treat as a
// deliberate clearing of the field. Items are never mutated after creation;
// a new value is a new DataItem.
type DataItem struct {
	Name     string
	Value    *string
	Type     DataType
	Required bool
}

// HasValue reports whether any value, including an explicit empty string,
// was supplied for the item.
func (d DataItem) HasValue() bool {
	return d.Value != nil
}

// IsPopulated reports whether the item carries a non-empty value. Validation
// treats an explicit empty string the same as no value at all.
func (d DataItem) IsPopulated() bool {
	return d.Value != nil && *d.Value != ""
}

// StringValue returns the value or empty string when none was supplied.
func (d DataItem) StringValue() string {
	if d.Value == nil {
		return ""
	}
	return *d.Value
}
