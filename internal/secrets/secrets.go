// Package secrets provides a platform-abstracted store for the connection
// ticket, the long-lived credential used to sign on to the gateway.
// On macOS the ticket is kept in the system Keychain; elsewhere a no-op
// fallback is used and the ticket stays in the config file.
package secrets

import "errors"

// ServiceName identifies qbconnect credentials in the system keychain.
const ServiceName = "qbconnect"

// AccountConnectionTicket is the account name for the connection ticket.
const AccountConnectionTicket = "connection-ticket"

// ErrNotFound is returned when a credential is not found in the store.
var ErrNotFound = errors.New("credential not found")

// ErrNotSupported is returned when the secret store is not supported on the
// current platform.
var ErrNotSupported = errors.New("secret store not supported on this platform")

// Store provides secure credential storage. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get retrieves a credential. Returns ErrNotFound if it does not
	// exist.
	Get(service, account string) (string, error)

	// Set stores a credential, updating it if it already exists.
	Set(service, account, value string) error

	// Delete removes a credential. Returns ErrNotFound if it does not
	// exist.
	Delete(service, account string) error

	// IsSupported reports whether this store is functional on the
	// current platform.
	IsSupported() bool
}

// store is the package-level instance, set by the platform-specific init().
var store Store

// Default returns the store for the current platform. On unsupported
// platforms it returns a NoopStore.
func Default() Store {
	if store == nil {
		store = &NoopStore{}
	}
	return store
}

// IsSupported reports whether secure credential storage is available.
func IsSupported() bool {
	return Default().IsSupported()
}

// ConnectionTicket retrieves the stored connection ticket.
func ConnectionTicket() (string, error) {
	return Default().Get(ServiceName, AccountConnectionTicket)
}

// SetConnectionTicket stores the connection ticket.
func SetConnectionTicket(ticket string) error {
	return Default().Set(ServiceName, AccountConnectionTicket, ticket)
}

// DeleteConnectionTicket removes the stored connection ticket.
func DeleteConnectionTicket() error {
	return Default().Delete(ServiceName, AccountConnectionTicket)
}
