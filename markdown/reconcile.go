package markdown

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Reconcile computes the tail of raw streamed text not yet covered by
// any finalized block. Blocks are visited in ascending index order;
// each is re-serialized and located in raw from a forward-only cursor.
// When a serialization is not found verbatim the cursor advances by the
// serialized length instead, a best-effort fallback that can drift.
func Reconcile(raw string, blocks map[int]Block) string {
	indices := make([]int, 0, len(blocks))
	for idx := range blocks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	cursor := 0
	for _, idx := range indices {
		s := Serialize(blocks[idx])
		if s == "" {
			continue
		}
		if pos := strings.Index(raw[cursor:], s); pos >= 0 {
			cursor += pos + len(s)
			continue
		}
		zap.S().Debugw("block_reconcile_miss", "index", idx, "serialized_len", len(s))
		cursor += len(s)
		if cursor > len(raw) {
			cursor = len(raw)
		}
	}

	return strings.TrimLeft(raw[cursor:], "\n")
}
