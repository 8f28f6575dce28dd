package client

// cache.go implements the collection cache behind the data-access layer.
//
// The invalidation contract is explicit: every mutation is declared here
// together with the set of collections it invalidates. Reads go through the
// cache; the import engine builds its catalog index from one snapshot per
// pass instead of re-fetching after each mutation.

import (
	"sync"
	"time"
)

// Collection identifies one cached remote collection.
type Collection string

const (
	CollectionCategories    Collection = "categories"
	CollectionManufacturers Collection = "manufacturers"
	CollectionProducts      Collection = "products"
	CollectionSales         Collection = "sales"
	CollectionUsers         Collection = "users"
)

// Mutation identifies one kind of write against the remote service.
type Mutation string

const (
	MutationProductWrite       Mutation = "product_write"
	MutationProductDelete      Mutation = "product_delete"
	MutationCategoryWrite      Mutation = "category_write"
	MutationCategoryDelete     Mutation = "category_delete"
	MutationManufacturerWrite  Mutation = "manufacturer_write"
	MutationManufacturerDelete Mutation = "manufacturer_delete"
	MutationUserDelete         Mutation = "user_delete"
)

// invalidations is the contract: which cached collections each mutation
// makes stale. Deleting a category or manufacturer can cascade into the
// product list on the remote side, so those also drop products.
var invalidations = map[Mutation][]Collection{
	MutationProductWrite:       {CollectionProducts},
	MutationProductDelete:      {CollectionProducts},
	MutationCategoryWrite:      {CollectionCategories},
	MutationCategoryDelete:     {CollectionCategories, CollectionProducts},
	MutationManufacturerWrite:  {CollectionManufacturers},
	MutationManufacturerDelete: {CollectionManufacturers, CollectionProducts},
	MutationUserDelete:         {CollectionUsers},
}

// cacheEntry is one cached collection with its expiry.
type cacheEntry struct {
	value   any
	expires time.Time
}

// collectionCache is a small thread-safe TTL cache keyed by Collection.
type collectionCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[Collection]cacheEntry
}

func newCollectionCache(ttl time.Duration) *collectionCache {
	return &collectionCache{
		ttl:  ttl,
		data: make(map[Collection]cacheEntry),
	}
}

// get returns the cached value for col if present and unexpired.
func (c *collectionCache) get(col Collection) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[col]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.value, true
}

// put stores value for col with the cache's TTL.
func (c *collectionCache) put(col Collection, value any) {
	c.mu.Lock()
	c.data[col] = cacheEntry{value: value, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// invalidateFor drops the collections the given mutation makes stale.
func (c *collectionCache) invalidateFor(m Mutation) {
	cols, ok := invalidations[m]
	if !ok {
		return
	}
	c.mu.Lock()
	for _, col := range cols {
		delete(c.data, col)
	}
	c.mu.Unlock()
}

// invalidateAll drops everything.
func (c *collectionCache) invalidateAll() {
	c.mu.Lock()
	c.data = make(map[Collection]cacheEntry)
	c.mu.Unlock()
}
