package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Ref points at a related record. The backend sends either a bare id
// or a nested object, both decode into Ref.
type Ref struct {
	ID       int64  `json:"id"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	switch data[0] {
	case '{':
		type plain Ref
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*r = Ref(p)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("ref: invalid id %q", s)
		}
		*r = Ref{ID: id}
		return nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("ref: %w", err)
		}
		*r = Ref{ID: id}
		return nil
	}
}

// Name is the best human label the ref carries.
func (r Ref) Name() string {
	switch {
	case r.FullName != "":
		return r.FullName
	case r.Title != "":
		return r.Title
	default:
		return r.Username
	}
}

// FlexString decodes a JSON string or number into its text form.
// DRF sends decimals as strings and integers as numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}
