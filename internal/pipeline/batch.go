package pipeline

import "fmt"

// Batch flattens keyLists in order, keeps at most maxTotal keys (maxTotal <= 0
// keeps all) and splits them into chunks of size. The last chunk may be
// shorter.
func Batch(keyLists [][]string, size, maxTotal int) ([][]string, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}

	var flat []string
	for _, keys := range keyLists {
		flat = append(flat, keys...)
	}
	if maxTotal > 0 && len(flat) > maxTotal {
		flat = flat[:maxTotal]
	}

	batches := make([][]string, 0, (len(flat)+size-1)/size)
	for start := 0; start < len(flat); start += size {
		end := min(start+size, len(flat))
		batches = append(batches, flat[start:end:end])
	}
	return batches, nil
}
