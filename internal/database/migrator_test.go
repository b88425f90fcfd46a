package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingSkipsAppliedAndResetFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_installments.sql": {Data: []byte("SELECT 1;")},
		"sql/001_init.sql":         {Data: []byte("SELECT 1;")},
		"sql/003_reset_demo.sql":   {Data: []byte("TRUNCATE users;")},
		"sql/README.md":            {Data: []byte("notes")},
		"sql/004_invoices.sql":     {Data: []byte("SELECT 1;")},
	}
	m := NewMigratorWithFS(nil, fsys, "sql")

	pending, err := m.Pending(map[string]bool{"002_installments.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "004_invoices.sql"}, pending)
}

func TestPendingMissingDirectory(t *testing.T) {
	m := NewMigratorWithFS(nil, fstest.MapFS{}, "nope")
	_, err := m.Pending(nil)
	assert.Error(t, err)
}
