package retrier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("returns first success", func(t *testing.T) {
		calls := 0
		out, err := Connect(3, 0, func() (int, error) {
			calls++
			return 42, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 42, out)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero retry makes exactly one attempt", func(t *testing.T) {
		calls := 0
		_, err := Connect(0, 0, func() (int, error) {
			calls++
			return 0, errors.New("down")
		})

		assert.EqualError(t, err, "down")
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		out, err := Connect(3, 0, func() (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("not yet")
			}
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, 3, calls)
	})
}

func TestDo(t *testing.T) {
	t.Run("makes count attempts", func(t *testing.T) {
		calls := 0
		err := Do(3, 0, func() error {
			calls++
			return errors.New("cache error")
		})

		assert.EqualError(t, err, "cache error")
		assert.Equal(t, 3, calls)
	})

	t.Run("zero count still runs once", func(t *testing.T) {
		calls := 0
		err := Do(0, 0, func() error {
			calls++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestMultiConnects(t *testing.T) {
	t.Run("opens every connection", func(t *testing.T) {
		n := 0
		conns, err := MultiConnects(2, func() (int, error) {
			n++
			return n, nil
		}, nil, nil)

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, conns)
	})

	t.Run("cleans up on failure", func(t *testing.T) {
		n := 0
		var closed []int

		conns, err := MultiConnects(3, func() (int, error) {
			n++
			if n == 3 {
				return 0, errors.New("refused")
			}
			return n, nil
		}, &RetrierOpts{Count: 0, Interval: 0}, func(c int) { closed = append(closed, c) })

		assert.Error(t, err)
		assert.Nil(t, conns)
		assert.Equal(t, []int{1, 2}, closed)
	})
}
