// Package toolnames builds the per-request mapping between original tool
// names and length-constrained short names. Some backends reject function
// names longer than a fixed limit; namespaced MCP-style names
// (server__tool_name) routinely exceed it. The table is built once before the
// backend request is sent and its inverse is consulted only while parsing the
// response.
package toolnames

import (
	"strconv"
	"strings"
)

// DefaultLimit is the backend tool-name length limit.
const DefaultLimit = 64

const (
	nsSeparator  = "__"
	nsPrefixKeep = 16
)

// Table maps original tool names to unique short names and back. One Table
// belongs to exactly one request.
type Table struct {
	limit   int
	forward map[string]string
	reverse map[string]string
}

// New creates an empty table with the given length limit. A non-positive
// limit falls back to DefaultLimit.
func New(limit int) *Table {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Table{
		limit:   limit,
		forward: make(map[string]string),
		reverse: make(map[string]string),
	}
}

// Build creates a table covering every name in the given set.
func Build(names []string, limit int) *Table {
	t := New(limit)
	for _, name := range names {
		t.Add(name)
	}
	return t
}

// Add registers a name and returns its short form. Adding the same original
// twice returns the existing mapping. Distinct originals never share a short
// name: collisions get a _<n> suffix, re-truncated to stay within the limit.
func (t *Table) Add(name string) string {
	if short, ok := t.forward[name]; ok {
		return short
	}

	short := t.shorten(name)
	if prev, taken := t.reverse[short]; taken && prev != name {
		base := short
		for n := 1; ; n++ {
			suffix := "_" + strconv.Itoa(n)
			cand := base
			if len(cand)+len(suffix) > t.limit {
				cand = cand[:t.limit-len(suffix)]
			}
			cand += suffix
			if _, used := t.reverse[cand]; !used {
				short = cand
				break
			}
		}
	}

	t.forward[name] = short
	t.reverse[short] = name
	return short
}

// Shorten returns the short form of a previously added name. Unknown names
// pass through unchanged.
func (t *Table) Shorten(name string) string {
	if short, ok := t.forward[name]; ok {
		return short
	}
	return name
}

// Restore returns the original name for a short form seen in a backend
// response. Unknown short names pass through unchanged.
func (t *Table) Restore(short string) string {
	if name, ok := t.reverse[short]; ok {
		return name
	}
	return short
}

// Len returns the number of registered names.
func (t *Table) Len() int {
	return len(t.forward)
}

// shorten produces a candidate short name within the limit. Names already
// within the limit pass through. Over-limit namespaced names keep a
// recognizable prefix plus the tail segment after the last separator;
// anything else is plain-truncated.
func (t *Table) shorten(name string) string {
	if len(name) <= t.limit {
		return name
	}
	if i := strings.LastIndex(name, nsSeparator); i > 0 {
		keep := nsPrefixKeep
		if keep > i {
			keep = i
		}
		cand := name[:keep] + nsSeparator + name[i+len(nsSeparator):]
		if len(cand) > t.limit {
			cand = cand[:t.limit]
		}
		return cand
	}
	return name[:t.limit]
}
