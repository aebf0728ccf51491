package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type field struct {
	name  string
	value Value
}

// Document is an ordered set of named fields.
type Document struct {
	fields []field
}

func New() *Document {
	return new(Document)
}

// Add sets the named field. An existing field keeps its position.
func (d *Document) Add(name string, v Value) *Document {
	for i := range d.fields {
		if d.fields[i].name == name {
			d.fields[i].value = v
			return d
		}
	}
	d.fields = append(d.fields, field{name: name, value: v})
	return d
}

func (d *Document) Get(name string) (Value, bool) {
	for _, f := range d.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return Value{}, false
}

func (d *Document) Names() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.name
	}
	return names
}

func (d *Document) Len() int {
	return len(d.fields)
}

// Map returns the fields as plain Go values.
func (d *Document) Map() map[string]any {
	m := make(map[string]any, len(d.fields))
	for _, f := range d.fields {
		m[f.name] = f.value.Native()
	}
	return m
}

// MarshalJSON encodes the document as {"fields": {...}} preserving field order.
func (d *Document) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString(`{"fields":{`)
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		value, err := f.value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes {"fields": {...}}. Other top-level keys such as
// name or createTime are ignored. Field order follows the input.
func (d *Document) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Fields json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	d.fields = nil
	if len(envelope.Fields) == 0 || string(envelope.Fields) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(envelope.Fields))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields must be an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid field name %v", tok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		d.Add(name, v)
	}
	_, err = dec.Token()
	return err
}
