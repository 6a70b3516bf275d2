package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a server-assigned identifier. The API emits integers for sessions and
// users and strings for documents, so both decode into the same type.
type ID string

// String returns the identifier as used in URL paths
func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON accepts a JSON string or number
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}
