package linker

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

type result struct {
	code    string
	changed bool
}

// Cache memoizes Transform results by chunk content, so rebuilds that emit an
// unchanged chunk skip scanning it again. It is safe for concurrent use.
type Cache struct {
	lru *lru.Cache[string, result]
}

// NewCache returns a cache holding at most size results.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 1
	}
	l, err := lru.New[string, result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Transform is o.Transform(c) through the cache. Results that came with a
// scan error are not stored.
func (k *Cache) Transform(o Options, c Chunk) (string, bool, error) {
	if k == nil {
		return o.Transform(c)
	}
	key := cacheKey(o, c)
	if r, ok := k.lru.Get(key); ok {
		return r.code, r.changed, nil
	}
	code, changed, err := o.Transform(c)
	if err == nil {
		k.lru.Add(key, result{code: code, changed: changed})
	}
	return code, changed, err
}

// Len returns the number of cached results.
func (k *Cache) Len() int {
	if k == nil {
		return 0
	}
	return k.lru.Len()
}

func cacheKey(o Options, c Chunk) string {
	h := sha256.New()
	h.Write([]byte(c.FileName))
	h.Write([]byte{0})
	h.Write([]byte(c.Format.String()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(o.OmitUnusedRuntime)))
	for _, target := range c.DynamicImports {
		h.Write([]byte{0})
		h.Write([]byte(target))
	}
	h.Write([]byte{1})
	h.Write([]byte(c.Code))
	return hex.EncodeToString(h.Sum(nil))
}
