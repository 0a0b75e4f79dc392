package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolConfig_SearchPath(t *testing.T) {
	pc, err := poolConfig(Config{Database: "notes", Host: "db", Port: 5433, User: "u", MaxConns: 4})
	require.NoError(t, err)
	require.Equal(t, "notes", pc.ConnConfig.Database)
	require.Equal(t, uint16(5433), pc.ConnConfig.Port)
	require.Equal(t, int32(4), pc.MaxConns)
	require.Equal(t, `"memoriz"`, pc.ConnConfig.RuntimeParams["search_path"])

	pc, err = poolConfig(Config{Database: "notes", Host: "db", Port: 5433, Schema: "tenant one"})
	require.NoError(t, err)
	require.Equal(t, `"tenant one"`, pc.ConnConfig.RuntimeParams["search_path"])
}
