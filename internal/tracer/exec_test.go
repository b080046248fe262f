package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `traceroute to 10.0.0.9 (10.0.0.9), 30 hops max, 60 byte packets
 1  10.0.0.1 (10.0.0.1)  1.234 ms
 2  10.0.0.5 (10.0.0.5)  5.678 ms
 3  * * *
 4  10.0.0.9 (10.0.0.9)  9.001 ms
`

func TestParseHopsSample(t *testing.T) {
	hops, err := parseHops([]byte(sampleOutput))
	require.NoError(t, err)
	require.Len(t, hops, 4)
	assert.Equal(t, 1, hops[0].Number)
	require.NotNil(t, hops[0].RTTMs)
	assert.InDelta(t, 1.234, *hops[0].RTTMs, 0.001)
	assert.Nil(t, hops[2].RTTMs)
}

func TestSummarizePicksMaxRTT(t *testing.T) {
	hops, err := parseHops([]byte(sampleOutput))
	require.NoError(t, err)
	result, err := summarize(hops)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 4, result.TotalHops)
	assert.InDelta(t, 9.001, result.MaxHopLatencyMs, 0.001)
}

func TestSummarizeAllUnreachableIsDiscarded(t *testing.T) {
	output := " 1  * * *\n 2  * * *\n"
	hops, err := parseHops([]byte(output))
	require.NoError(t, err)
	result, err := summarize(hops)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestParseHopsEmptyOutputErrors(t *testing.T) {
	_, err := parseHops([]byte("traceroute to 10.0.0.9, 30 hops max\n"))
	assert.Error(t, err)
}
