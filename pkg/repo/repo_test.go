package repo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opswell/adminkit/pkg/repo"
)

func TestFormatLimitOffset(t *testing.T) {
	require.Equal(t, "LIMIT 10 OFFSET 20", repo.FormatLimitOffset(10, 20))
	require.Equal(t, "LIMIT 10", repo.FormatLimitOffset(10, 0))
	require.Equal(t, "OFFSET 20", repo.FormatLimitOffset(0, 20))
	require.Equal(t, "", repo.FormatLimitOffset(0, 0))
}

func TestJoin(t *testing.T) {
	require.Equal(t, "SELECT 1 LIMIT 5", repo.Join("SELECT 1", "", "LIMIT 5"))
	require.Equal(t, "", repo.Join("", " "))
}

func TestJoinWhere(t *testing.T) {
	require.Equal(t, "WHERE a = $1 AND b = $2", repo.JoinWhere("a = $1", "", "b = $2"))
	require.Equal(t, "", repo.JoinWhere())
}
