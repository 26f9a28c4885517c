package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	for _, schema := range []string{SchemaAuth, SchemaFiles} {
		entries, err := fs.ReadDir(migrationsFS, schema)
		require.NoError(t, err, schema)

		var up, down int
		for _, e := range entries {
			switch {
			case strings.HasSuffix(e.Name(), ".up.sql"):
				up++
			case strings.HasSuffix(e.Name(), ".down.sql"):
				down++
			}
		}
		assert.Positive(t, up, schema)
		assert.Equal(t, up, down, schema)
	}
}
