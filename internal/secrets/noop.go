package secrets

// NoopStore is a no-op Store for platforms without secure credential
// storage. All operations return ErrNotSupported.
type NoopStore struct{}

// Get returns ErrNotSupported.
func (n *NoopStore) Get(service, account string) (string, error) {
	return "", ErrNotSupported
}

// Set returns ErrNotSupported.
func (n *NoopStore) Set(service, account, value string) error {
	return ErrNotSupported
}

// Delete returns ErrNotSupported.
func (n *NoopStore) Delete(service, account string) error {
	return ErrNotSupported
}

// IsSupported returns false.
func (n *NoopStore) IsSupported() bool {
	return false
}
