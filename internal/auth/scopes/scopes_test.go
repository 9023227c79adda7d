package scopes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImplied(t *testing.T) {
	t.Parallel()

	t.Run("legacy read expands to fine-grained read scopes", func(t *testing.T) {
		out := Implied([]string{LegacyRead})
		require.Subset(t, out, []string{TasksRead, ProjectsRead, CommentsRead})
		require.NotContains(t, out, TasksWrite)
	})

	t.Run("legacy write expands to fine-grained write scopes", func(t *testing.T) {
		out := Implied([]string{LegacyWrite})
		require.Subset(t, out, []string{TasksWrite, ProjectsWrite, CommentsWrite})
		require.NotContains(t, out, TasksRead)
	})

	t.Run("fine-grained scopes pass through unchanged", func(t *testing.T) {
		out := Implied([]string{TasksRead, Admin})
		require.ElementsMatch(t, []string{TasksRead, Admin}, out)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := Implied([]string{LegacyRead, TasksWrite})
		twice := Implied(once)
		require.Equal(t, once, twice)
	})

	t.Run("monotonic: expansion keeps the original scopes", func(t *testing.T) {
		in := []string{LegacyRead, LegacyWrite, Admin}
		require.Subset(t, Implied(in), in)
	})

	t.Run("deduplicates", func(t *testing.T) {
		out := Implied([]string{TasksRead, TasksRead, LegacyRead})
		count := 0
		for _, s := range out {
			if s == TasksRead {
				count++
			}
		}
		require.Equal(t, 1, count)
	})
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	t.Run("superset after expansion passes", func(t *testing.T) {
		require.NoError(t, Authorize([]string{LegacyRead}, []string{TasksRead, ProjectsRead}))
		require.NoError(t, Authorize([]string{TasksWrite}, []string{TasksWrite}))
		require.NoError(t, Authorize([]string{Admin}, nil))
	})

	t.Run("fails closed naming the missing scopes", func(t *testing.T) {
		err := Authorize([]string{TasksRead}, []string{TasksRead, TasksWrite, Admin})
		require.Error(t, err)

		var insufficientErr *InsufficientScopeError
		require.True(t, errors.As(err, &insufficientErr))
		require.ElementsMatch(t, []string{TasksWrite, Admin}, insufficientErr.Missing)
	})

	t.Run("legacy read does not satisfy write requirements", func(t *testing.T) {
		require.Error(t, Authorize([]string{LegacyRead}, []string{TasksWrite}))
	})

	t.Run("empty resolved set denies any requirement", func(t *testing.T) {
		require.Error(t, Authorize(nil, []string{TasksRead}))
	})
}

func TestWithin(t *testing.T) {
	t.Parallel()

	require.True(t, Within([]string{TasksRead}, []string{TasksRead, TasksWrite}))
	require.True(t, Within(nil, []string{TasksRead}))
	require.False(t, Within([]string{Admin}, []string{TasksRead}))
}

func TestKnown(t *testing.T) {
	t.Parallel()

	for _, s := range All() {
		require.True(t, Known(s))
	}
	require.False(t, Known("tasks:delete"))
}
