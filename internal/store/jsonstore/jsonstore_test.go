package jsonstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada-remote/internal/model"
)

func TestLoadMissingFile(t *testing.T) {
	items, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSaveThenLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "todos.json")
	created := model.Timestamp{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	in := []model.Todo{
		{TodoID: "a", Title: "first", CreatedAt: created},
		{TodoID: "b", Title: "second", Description: "d", Completed: true, CreatedAt: created},
	}
	require.NoError(t, Save(p, in))

	out, err := Load(p)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].TodoID)
	assert.Equal(t, "second", out[1].Title)
	assert.True(t, out[1].Completed)
	assert.True(t, created.Equal(out[1].CreatedAt.Time))
}

func TestLoadCorrupt(t *testing.T) {
	p := filepath.Join(t.TempDir(), "todos.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))
	_, err := Load(p)
	assert.ErrorContains(t, err, "json unmarshal")
}
