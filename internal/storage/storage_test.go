// internal/storage/storage_test.go
package storage_test

import (
	"fmt"
	"testing"

	"github.com/runtimeeditor/history/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestErrNotFoundWraps(t *testing.T) {
	err := fmt.Errorf("load %q: %w", "island", storage.ErrNotFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "island")
}
