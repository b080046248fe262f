package member

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"netring/internal/wire"
)

func TestPeerCacheRefreshFiltersSelfAndInactive(t *testing.T) {
	c := NewPeerCache("self")
	evicted := c.Refresh([]wire.Member{
		{InstanceID: "self", Status: wire.StatusActive},
		{InstanceID: "a", Status: wire.StatusActive},
		{InstanceID: "b", Status: wire.StatusDeregistered},
	})
	assert.Empty(t, evicted)
	assert.Equal(t, 1, c.Len())
}

func TestPeerCacheEvictsAfterTwoMissingRefreshes(t *testing.T) {
	c := NewPeerCache("self")
	c.Refresh([]wire.Member{{InstanceID: "a", Status: wire.StatusActive}})
	assert.Equal(t, 1, c.Len())

	evicted := c.Refresh(nil)
	assert.Empty(t, evicted, "absent for only one refresh is not yet evicted")
	assert.Equal(t, 1, c.Len())

	evicted = c.Refresh(nil)
	assert.Equal(t, []string{"a"}, evicted)
	assert.Equal(t, 0, c.Len())
}

func TestPeerCacheReappearanceResetsEvictionCounter(t *testing.T) {
	c := NewPeerCache("self")
	c.Refresh([]wire.Member{{InstanceID: "a", Status: wire.StatusActive}})
	c.Refresh(nil)
	evicted := c.Refresh([]wire.Member{{InstanceID: "a", Status: wire.StatusActive}})
	assert.Empty(t, evicted)
	assert.Equal(t, 1, c.Len())
}
