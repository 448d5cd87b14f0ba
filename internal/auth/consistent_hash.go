package auth

import (
	"hash/crc32"
	"sort"
	"strconv"
	"sync"
)

// Ring 一致性哈希环，token 缓存按环上节点分键，避免节点增减时整环失效
type Ring struct {
	replicas int
	keys     []int // 已排序的虚拟节点哈希
	hashMap  map[int]string
	nodes    map[string]struct{}
	mu       sync.RWMutex
}

// NewRing 创建哈希环，nodes 为空时使用单个默认节点
func NewRing(nodes []string, replicas int) *Ring {
	if replicas <= 0 {
		replicas = 50
	}
	if len(nodes) == 0 {
		nodes = []string{"auth-node-default"}
	}
	r := &Ring{
		replicas: replicas,
		hashMap:  make(map[int]string),
		nodes:    make(map[string]struct{}),
	}
	r.Add(nodes...)
	return r
}

// Add 批量添加节点
func (r *Ring) Add(nodes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range nodes {
		if _, exists := r.nodes[node]; exists {
			continue
		}
		r.nodes[node] = struct{}{}
		for i := 0; i < r.replicas; i++ {
			h := int(crc32.ChecksumIEEE([]byte(node + "#" + strconv.Itoa(i))))
			r.keys = append(r.keys, h)
			r.hashMap[h] = node
		}
	}
	sort.Ints(r.keys)
}

// Node 根据 key 获取负责的节点
func (r *Ring) Node(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.keys) == 0 {
		return ""
	}
	h := int(crc32.ChecksumIEEE([]byte(key)))
	idx := sort.Search(len(r.keys), func(i int) bool { return r.keys[i] >= h })
	if idx == len(r.keys) {
		idx = 0
	}
	return r.hashMap[r.keys[idx]]
}
