package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Properties is the closed, dynamically-typed property bag carried by nodes,
// edges, and chunks (spec §3, §9). Values are JSON-representable: string,
// number, bool, nested map, or slice of the same.
type Properties map[string]interface{}

// Value implements driver.Valuer so a Properties bag can be written to a
// column store (store/postgres) as JSONB.
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for the reverse direction.
func (p *Properties) Scan(value interface{}) error {
	if value == nil {
		*p = Properties{}
		return nil
	}

	switch v := value.(type) {
	case Properties:
		*p = v
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("properties: unsupported scan source")
	}
}

// Equal reports whether two property bags marshal to the same JSON object.
// Used by tests that compare round-tripped nodes/edges/chunks (spec §8.1,
// §8.8) without depending on Go map iteration order.
func (p Properties) Equal(other Properties) bool {
	a, errA := json.Marshal(p)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	var ma, mb map[string]interface{}
	if json.Unmarshal(a, &ma) != nil || json.Unmarshal(b, &mb) != nil {
		return false
	}
	if len(ma) != len(mb) {
		return false
	}
	am, _ := json.Marshal(ma)
	bm, _ := json.Marshal(mb)
	return string(am) == string(bm)
}

// Clone returns a shallow copy, sufficient for the by-value sharing contract
// in spec §3 ("readers never hold references into graph-internal storage").
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
