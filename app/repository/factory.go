package repository

import (
	"sync"

	"gorm.io/gorm"
)

var (
	registryMu sync.RWMutex
	registry   *Repositories
)

// InitializeFactory builds the process-wide repository set on db. A second
// call replaces the set, which lets tests point it at a fresh database.
func InitializeFactory(db *gorm.DB) *Repositories {
	repos := NewRepositories(db)
	registryMu.Lock()
	registry = repos
	registryMu.Unlock()
	return repos
}

// GetGlobalRepositories returns the set built by InitializeFactory and panics
// when the database was never wired.
func GetGlobalRepositories() *Repositories {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if registry == nil {
		panic("repository: InitializeFactory has not been called")
	}
	return registry
}
