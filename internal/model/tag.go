package model

import "strings"

// NormalizeTag strips the leading '#' from a clan or member tag so the bare
// tag can be used as a store key. Every handler must normalize through this
// function before touching the store.
func NormalizeTag(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "#")
}
