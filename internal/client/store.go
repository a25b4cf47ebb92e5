package client

import (
	"errors"
	"fmt"

	"github.com/inercia/qbconnect/internal/fileutil"
)

// ErrNoSession is returned when saving and no session is installed.
var ErrNoSession = errors.New("no session to save")

// SaveSession writes the current session (ticket and both expirations) to
// path as JSON, so a later process can resume it without a fresh sign-on.
// The write is atomic and the file is created with owner-only permissions:
// the ticket is a credential.
func (c *Client) SaveSession(path string) error {
	session, ok := c.Session()
	if !ok {
		return ErrNoSession
	}
	if err := fileutil.WriteJSONAtomic(path, session, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// LoadSession restores a previously saved session from path via SetSession,
// preserving the recorded expirations. Restoring an expired session is not
// an error; it simply fails the next validity check and triggers a fresh
// sign-on.
func (c *Client) LoadSession(path string) error {
	var session Session
	if err := fileutil.ReadJSON(path, &session); err != nil {
		return fmt.Errorf("read session file: %w", err)
	}
	if err := c.SetSession(session.Ticket, session.IssueExpiration, session.UseExpiration); err != nil {
		return fmt.Errorf("session file %s: %w", path, err)
	}
	return nil
}
