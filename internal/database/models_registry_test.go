package database

import (
	"testing"

	modelspkg "sherise/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesSliceAndAccount(t *testing.T) {
	var slice, account bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.Slice:
			slice = true
		case *modelspkg.Account:
			account = true
		}
	}
	require.True(t, slice, "PersistentModels should include Slice")
	require.True(t, account, "PersistentModels should include Account")
}
