package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingStableMapping(t *testing.T) {
	r := NewRing([]string{"node-a", "node-b", "node-c"}, 50)

	// 同一 key 永远落在同一节点
	first := r.Node("some-jwt-token")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Node("some-jwt-token"))
	}
	assert.NotEmpty(t, first)
}

func TestRingDistribution(t *testing.T) {
	r := NewRing([]string{"node-a", "node-b", "node-c"}, 100)

	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		seen[r.Node(string(rune(i))+"-key")]++
	}
	// 三个节点都应该分到 key
	require.Len(t, seen, 3)
}

func TestRingDefaults(t *testing.T) {
	r := NewRing(nil, 0)
	assert.Equal(t, "auth-node-default", r.Node("anything"))

	// 重复添加不产生重复虚拟节点
	r.Add("auth-node-default")
	assert.Equal(t, "auth-node-default", r.Node("anything"))
}

func TestTokenCacheWithoutRedis(t *testing.T) {
	c := NewTokenCache(nil, nil, 0)

	claims, hit, err := c.Get(context.Background(), "token")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, claims)

	assert.NoError(t, c.Set(context.Background(), "token", &Claims{UserID: 1}))
}
