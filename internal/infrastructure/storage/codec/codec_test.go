package codec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/infrastructure/storage/codec"
)

func TestSmallPayloadStaysPlain(t *testing.T) {
	c, err := codec.New(0)
	require.NoError(t, err)
	defer c.Close()

	p, err := c.Encode(map[string]any{"status": "CANCELLED"})
	require.NoError(t, err)
	assert.Equal(t, codec.AlgoNone, p.Algo)
	assert.Nil(t, p.Compressed)
	assert.JSONEq(t, `{"status":"CANCELLED"}`, string(p.JSON))

	raw, err := c.Decode(p)
	require.NoError(t, err)
	assert.Equal(t, p.JSON, raw)
}

func TestLargePayloadIsCompressed(t *testing.T) {
	c, err := codec.New(64)
	require.NoError(t, err)
	defer c.Close()

	notes := strings.Repeat("pallet 7 left at dock B; ", 40)
	p, err := c.Encode(map[string]any{"notes": notes})
	require.NoError(t, err)
	assert.Equal(t, codec.AlgoZstd, p.Algo)
	assert.Nil(t, p.JSON)
	assert.Less(t, len(p.Compressed), len(notes))

	raw, err := c.Decode(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pallet 7 left at dock B")
}

func TestDecodeUnknownAlgo(t *testing.T) {
	c, err := codec.New(0)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Decode(codec.Payload{Algo: "lz4"})
	assert.Error(t, err)
}
