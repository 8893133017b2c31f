package translator

import (
	"fmt"

	"github.com/pescheckit/gpt-po/pofile"
)

// Plan partitions pending entries into consecutive batches of at most
// size entries, preserving catalog order so provider responses can be
// zipped back positionally. The partition is deterministic: identical
// input always yields identical batches.
func Plan(entries []*pofile.Entry, size int) ([][]*pofile.Entry, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", size)
	}

	var batches [][]*pofile.Entry
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		batches = append(batches, entries[start:end])
	}
	return batches, nil
}
