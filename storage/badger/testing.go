package badger

import "github.com/poiesic/docingest/storage"

// NewMemoryDialer creates an in-memory backend and a dialer over it for testing.
// Caller must close the backend when done.
func NewMemoryDialer() (storage.Dialer, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}
	return NewDialer(backend), backend, nil
}
