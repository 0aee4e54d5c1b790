package binary

import (
	"testing"

	"github.com/ZentaChain/wasocket/pkg/token"
)

func tokenByte(t *testing.T, value string) byte {
	t.Helper()
	index, ok := token.IndexOfSingleToken(value)
	if !ok {
		t.Fatalf("%q is not a single byte token", value)
	}
	return index
}
