package respond

import (
	"strconv"
	"strings"
)

type mediaRange struct {
	mediaType string
	q         float64
}

// parseAccept splits an Accept header into media ranges. Entries with a
// malformed or out-of-range q value are dropped.
func parseAccept(header string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(header, ",") {
		fields := strings.Split(part, ";")
		mediaType := strings.ToLower(strings.TrimSpace(fields[0]))
		if mediaType == "" || !strings.Contains(mediaType, "/") {
			continue
		}
		q := 1.0
		valid := true
		for _, param := range fields[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "q") {
				continue
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || parsed < 0 || parsed > 1 {
				valid = false
				break
			}
			q = parsed
		}
		if valid {
			ranges = append(ranges, mediaRange{mediaType: mediaType, q: q})
		}
	}
	return ranges
}

// prefersCBOR reports whether the client explicitly asks for CBOR with a
// weight higher than any JSON-compatible range. Wildcards resolve to JSON.
func prefersCBOR(accept string) bool {
	if accept == "" {
		return false
	}
	cborQ, jsonQ := -1.0, -1.0
	for _, mr := range parseAccept(accept) {
		switch mr.mediaType {
		case "application/cbor", ContentTypeProblemCBOR, "application/*+cbor":
			cborQ = max(cborQ, mr.q)
		case "application/json", ContentTypeProblemJSON, "application/*+json", "application/*", "*/*":
			jsonQ = max(jsonQ, mr.q)
		}
	}
	return cborQ > 0 && cborQ > jsonQ
}
