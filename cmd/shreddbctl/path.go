package main

import (
	"strconv"
	"strings"

	"github.com/shredb/shredb/field"
)

// parsePath parses a dotted path string ("tracks.0.title", "tracks.*.title")
// into a field.Path. An empty string denotes the document root.
func parsePath(s string) field.Path {
	if s == "" {
		return nil
	}
	segments := strings.Split(s, ".")
	path := make(field.Path, 0, len(segments))
	for _, seg := range segments {
		switch {
		case seg == "*":
			path = append(path, field.Wildcard())
		default:
			if n, err := strconv.Atoi(seg); err == nil {
				path = append(path, field.Index(n))
				continue
			}
			path = append(path, field.Key(seg))
		}
	}
	return path
}

func parsePaths(items []string) []field.Path {
	if len(items) == 0 {
		return nil
	}
	paths := make([]field.Path, len(items))
	for i, s := range items {
		paths[i] = parsePath(s)
	}
	return paths
}
