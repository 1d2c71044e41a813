package tracer

import (
	"testing"

	r "github.com/stretchr/testify/require"
)

func TestMakeIdentifierString(t *testing.T) {
	a := MakeIdentifierString(map[string]any{"a": 1, "b": 2})
	b := MakeIdentifierString(map[string]any{"b": 2, "a": 1})
	r.Equal(t, "a#1##b#2", a)
	r.Equal(t, a, b)

	r.Equal(t, "", MakeIdentifierString(nil))
	r.Equal(t, "", MakeIdentifierString(map[string]any{}))

	// values compare by their string form
	r.Equal(t, "msgId#m1##queue#q1", MakeIdentifierString(map[string]any{"queue": "q1", "msgId": "m1"}))
	r.Equal(t,
		MakeIdentifierString(map[string]any{"n": 42}),
		MakeIdentifierString(map[string]any{"n": "42"}))
	r.Equal(t, "ok#true", MakeIdentifierString(map[string]any{"ok": true}))
	r.Equal(t, "n#1.5", MakeIdentifierString(map[string]any{"n": 1.5}))
	r.Equal(t, "k#[x y]", MakeIdentifierString(map[string]any{"k": []string{"x", "y"}}))
}
