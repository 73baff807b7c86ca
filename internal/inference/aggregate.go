package inference

import "strings"

// Collect drains a stream and concatenates its text deltas in delivery
// order. A stream that ends without any deltas yields an empty string, which
// is a valid completion rather than an error. An in-stream error aborts the
// aggregation; a partially consumed stream cannot be resumed, so callers
// retry the whole invocation instead.
func Collect(stream Stream) (string, error) {
	var b strings.Builder
	for event := range stream {
		if event.Err != nil {
			return "", event.Err
		}
		b.WriteString(event.Delta)
	}
	return b.String(), nil
}
