package parallel

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	assert.Equal(t, int64(n), counter)
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	order := make([]int, 0, 10)
	For(10, func(i int) {
		order = append(order, i)
	}, cfg)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestFor_EveryIndexOnce(t *testing.T) {
	cfg := WithWorkers(4)
	seen := make([]int32, 257)

	For(len(seen), func(i int) {
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	for i, v := range seen {
		require.Equal(t, int32(1), v, "index %d", i)
	}
}

func TestWithWorkers(t *testing.T) {
	assert.False(t, WithWorkers(0).Enabled)
	assert.False(t, WithWorkers(1).Enabled)
	assert.True(t, WithWorkers(3).Enabled)
	assert.Equal(t, 1, WithWorkers(-2).NumWorkers)
}

func TestForErr_LowestIndexWins(t *testing.T) {
	errLow := errors.New("low")
	err := ForErr(100, func(i int) error {
		switch i {
		case 17:
			return errLow
		case 60:
			return fmt.Errorf("high")
		}
		return nil
	}, WithWorkers(8))

	assert.ErrorIs(t, err, errLow)
}

func TestForErr_NoError(t *testing.T) {
	assert.NoError(t, ForErr(50, func(int) error { return nil }, DefaultConfig()))
}
