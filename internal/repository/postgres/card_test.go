package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCardRepository(t *testing.T) {
	db := &Connection{}
	repo := NewCardRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNewVaultRepository(t *testing.T) {
	db := &Connection{}
	repo := NewVaultRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}
