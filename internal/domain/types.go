package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	data, ok := scanBytes(value)
	if !ok {
		*s = nil
		return nil
	}
	return json.Unmarshal(data, s)
}

// ProgressItems is a JSON-encoded column holding one of a batch's result lists.
type ProgressItems []ProgressItem

func (p ProgressItems) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal progress items: %w", err)
	}
	return string(data), nil
}

func (p *ProgressItems) Scan(value interface{}) error {
	data, ok := scanBytes(value)
	if !ok {
		*p = nil
		return nil
	}
	return json.Unmarshal(data, p)
}

func scanBytes(value interface{}) ([]byte, bool) {
	if value == nil {
		return nil, false
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, false
	}

	if len(data) == 0 || string(data) == "null" {
		return nil, false
	}
	return data, true
}
