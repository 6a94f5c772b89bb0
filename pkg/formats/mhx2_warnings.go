package formats

import (
	"fmt"
	"strings"

	"github.com/Faultbox/mhx2/pkg/jsondom"
)

// Warning is a non-fatal diagnostic produced while reading an MHX2 file.
type Warning struct {
	Message string       // What happened
	Key     string       // JSON member key or referenced name, if any
	Type    jsondom.Type // Type of the offending JSON node
	HasNode bool         // Type is meaningful
}

// String formats the warning as "message - json - key - K - type - T".
func (w Warning) String() string {
	var sb strings.Builder
	sb.WriteString(w.Message)
	switch {
	case w.HasNode && w.Key != "":
		fmt.Fprintf(&sb, " - json - key - %s - type - %s", w.Key, w.Type)
	case w.HasNode:
		fmt.Fprintf(&sb, " - json - type - %s", w.Type)
	case w.Key != "":
		fmt.Fprintf(&sb, " - key - %s", w.Key)
	}
	return sb.String()
}

// Warnings is the ordered warning log of one load.
type Warnings []Warning

// Add records a warning about a JSON node. n may be nil.
func (ws *Warnings) Add(msg string, n *jsondom.Node) {
	w := Warning{Message: msg}
	if n != nil {
		w.Type = n.Type
		w.HasNode = true
		if n.Named {
			w.Key = n.Name
		}
	}
	*ws = append(*ws, w)
}

// AddKey records a warning about a named entity that is not a JSON node,
// such as an unresolved bone or material reference.
func (ws *Warnings) AddKey(msg, key string) {
	*ws = append(*ws, Warning{Message: msg, Key: key})
}

// Reset clears the log.
func (ws *Warnings) Reset() {
	*ws = (*ws)[:0]
}

// Len returns the number of warnings.
func (ws Warnings) Len() int {
	return len(ws)
}

// Strings returns every warning formatted with String.
func (ws Warnings) Strings() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}

// Mentions reports whether any warning has key as its Key.
func (ws Warnings) Mentions(key string) bool {
	for _, w := range ws {
		if w.Key == key {
			return true
		}
	}
	return false
}
