package cache

import (
	"encoding/json"
	"fmt"
)

// Key identifies a cached query, e.g. Key{"tasks", "list", params}.
// Parts must be JSON-encodable; struct parts encode with their json tags,
// so omitted params never change the key.
type Key []any

// String returns the canonical encoding of the key
func (k Key) String() string {
	b, err := json.Marshal([]any(k))
	if err != nil {
		// Non-encodable parts still get a stable, if less canonical, identity
		return fmt.Sprintf("%#v", []any(k))
	}
	return string(b)
}

// prefixes returns the encodings of every proper prefix of k, used as tags
// for bulk invalidation: Key{"tasks","list",p} is tagged ["tasks"] and ["tasks","list"]
func (k Key) prefixes() []string {
	out := make([]string, 0, len(k))
	for i := 1; i < len(k); i++ {
		out = append(out, k[:i].String())
	}
	return out
}
