package migrations

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreSequential(t *testing.T) {
	source, err := iofs.New(files, "sql")
	require.NoError(t, err)
	defer source.Close()

	version, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	count := 1
	for {
		next, err := source.Next(version)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, fs.ErrNotExist) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, version+1, next)

		down, _, err := source.ReadDown(next)
		require.NoError(t, err, "migration %d has no down file", next)
		down.Close()

		version = next
		count++
	}

	assert.Equal(t, 5, count)
}
