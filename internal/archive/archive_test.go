package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{Port: "9000"}.Enabled())
	assert.True(t, Config{Host: "clickhouse", Port: "9000"}.Enabled())
}

func TestRecordBatchEmpty(t *testing.T) {
	archive := &Archive{}

	assert.NoError(t, archive.RecordBatch(context.Background(), nil))
}
