package model

import (
	"fmt"
	"strconv"
	"strings"
)

// List-valued form fields accept exactly one wire representation: a
// comma-separated string. Earlier revisions sniffed between JSON arrays and
// loose comma lists; that guessing is gone on purpose.

// ParseTags splits a comma-separated tag field, trimming whitespace and
// dropping empties. An empty input yields a nil slice.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags renders a tag slice back into the stored comma-separated form.
func JoinTags(tags []string) string { return strings.Join(tags, ",") }

// ParseIDList parses a comma-separated list of numeric ids. Unlike the tag
// parser it is strict: a malformed entry fails the whole field so that typos
// surface as validation errors instead of silently dropped references.
func ParseIDList(raw string) ([]uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []uint64
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
