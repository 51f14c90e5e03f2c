package pipeline

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThen(t *testing.T) {
	parse := Stage[string, int](func(s *string) *int {
		n, err := strconv.Atoi(*s)
		if err != nil {
			return nil
		}
		return &n
	})
	double := Stage[int, int](func(n *int) *int {
		v := *n * 2
		return &v
	})

	var calls int
	counted := Stage[int, int](func(n *int) *int {
		calls++
		return n
	})

	chain := Then(Then(parse, double), counted)

	in := "21"
	got := chain(&in)
	if assert.NotNil(t, got) {
		assert.Equal(t, 42, *got)
	}
	assert.Equal(t, 1, calls)

	bad := "x"
	assert.Nil(t, chain(&bad))
	assert.Equal(t, 1, calls, "stages after a nil must not run")

	assert.Nil(t, chain(nil))
}
