package blocklist

import (
	"encoding/json"
	"fmt"
)

// Merge returns the rule objects of the named lists as a single JSON array,
// lists in the order given and rules in document order.  Rules are copied
// verbatim, so the result can be handed to any content-blocker consumer.
func Merge(loader Loader, names []string) (data []byte, err error) {
	merged := []json.RawMessage{}
	for _, name := range uniqueNames(names) {
		var doc []byte
		doc, err = loader.Load(name)
		if err != nil {
			return nil, &ListError{Name: name, Err: fmt.Errorf("loading list %q: %w", name, err)}
		}

		var rules []json.RawMessage
		if err = json.Unmarshal(doc, &rules); err != nil {
			return nil, &ListError{Name: name, Err: fmt.Errorf("list %q: %w: %w", name, ErrMalformedList, err)}
		}

		merged = append(merged, rules...)
	}

	return json.Marshal(merged)
}
