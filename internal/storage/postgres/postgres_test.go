package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenRejectsTableName(t *testing.T) {
	for _, table := range []string{"1kv", "kv; DROP TABLE users", "kv-docs"} {
		_, err := Open(context.Background(), "postgres://localhost/teamboard", table, nil)
		assert.ErrorContains(t, err, "invalid table name", table)
	}
}

func TestOpenRejectsBadDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", "", nil)
	assert.ErrorContains(t, err, "parse postgres dsn")
}
