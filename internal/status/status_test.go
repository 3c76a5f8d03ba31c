package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kesurge.org/kesurge-web/internal/domain"
)

type fakeBackend struct {
	statsErr error
	catsErr  error
	wait     time.Duration
}

func (f fakeBackend) Stats(ctx context.Context) (domain.Stats, error) {
	if f.wait > 0 {
		select {
		case <-time.After(f.wait):
		case <-ctx.Done():
			return domain.Stats{}, ctx.Err()
		}
	}
	return domain.Stats{}, f.statsErr
}

func (f fakeBackend) Categories(context.Context) (map[string]int, error) {
	return map[string]int{"comida": 3}, f.catsErr
}

func TestCheckStates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		backend fakeBackend
		want    string
	}{
		{name: "all ok", backend: fakeBackend{}, want: StateOperational},
		{name: "one failing", backend: fakeBackend{statsErr: errors.New("boom")}, want: StateDegraded},
		{name: "all failing", backend: fakeBackend{statsErr: errors.New("a"), catsErr: errors.New("b")}, want: StateDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			summary, err := NewChecker(tc.backend, 0).Check(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.want, summary.State)
			require.Len(t, summary.Components, 2)
			require.Equal(t, "categorias", summary.Components[0].Name)
		})
	}
}

func TestCheckTimeoutMarksComponent(t *testing.T) {
	t.Parallel()

	summary, err := NewChecker(fakeBackend{wait: time.Second}, 10*time.Millisecond).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDegraded, summary.State)
	require.Equal(t, ComponentError, summary.Components[1].Status)
	require.Contains(t, summary.Components[1].Error, "deadline")
}

func TestCheckWithoutBackend(t *testing.T) {
	t.Parallel()

	summary, err := NewChecker(nil, 0).Check(context.Background())
	require.ErrorIs(t, err, ErrNoBackend)
	require.Equal(t, StateDown, summary.State)
}
