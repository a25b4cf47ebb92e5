package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inercia/qbconnect/internal/qbxml"
)

// Session is the short-lived credential state negotiated with the gateway.
// A session is valid while the ticket is present and the current time is
// within both expirations: IssueExpiration is anchored to sign-on and never
// moves; UseExpiration is anchored to the last successful request and
// slides forward on every one.
type Session struct {
	Ticket          string    `json:"ticket"`
	IssueExpiration time.Time `json:"issue_expiration"`
	UseExpiration   time.Time `json:"use_expiration"`
}

// ValidAt reports whether the session is usable at the given instant.
func (s Session) ValidAt(now time.Time) bool {
	if s.Ticket == "" {
		return false
	}
	return !now.After(s.IssueExpiration) && !now.After(s.UseExpiration)
}

// SetSession installs a session, overwriting any prior one. Zero expiration
// times mean "apply the default window from now" (the zero time.Time is the
// natural absent value here; an explicit epoch timestamp would instead
// install an already-expired session). An empty ticket fails with
// ErrInvalidSession and leaves the prior session untouched.
func (c *Client) SetSession(ticket string, issueExp, useExp time.Time) error {
	if ticket == "" {
		return ErrInvalidSession
	}

	now := c.now()
	if issueExp.IsZero() {
		issueExp = now.Add(c.issueWindow)
	}
	if useExp.IsZero() {
		useExp = now.Add(c.useWindow)
	}

	c.session = Session{
		Ticket:          ticket,
		IssueExpiration: issueExp,
		UseExpiration:   useExp,
	}
	c.logger.Debug("session installed",
		"issue_expiration", issueExp,
		"use_expiration", useExp)
	return nil
}

// ValidSession reports whether the current session can authenticate a
// request right now. Pure check: no side effects, no network.
func (c *Client) ValidSession() bool {
	return c.session.ValidAt(c.now())
}

// ClearSession drops the session ticket and both expirations.
func (c *Client) ClearSession() {
	c.session = Session{}
}

// Session returns a copy of the current session state and whether a ticket
// is present. Callers may persist it and restore it later via SetSession.
func (c *Client) Session() (Session, bool) {
	return c.session, c.session.Ticket != ""
}

// AcquireSession performs the sign-on exchange: it trades the connection
// ticket for a fresh session ticket and installs it with default expiry
// windows. It fails fast with ErrMissingConnectionTicket before touching
// the network, and with *AcquireError if the HTTP exchange does not
// succeed. One attempt only; a failure leaves session state unchanged.
func (c *Client) AcquireSession(ctx context.Context) error {
	if c.connectionTicket == "" {
		return ErrMissingConnectionTicket
	}

	exchangeID := uuid.NewString()
	c.logger.Debug("acquiring session", "exchange_id", exchangeID)

	envelope := qbxml.Nodes{c.signonAppCertRq()}
	body, err := qbxml.Marshal(envelope, c.qbVersion)
	if err != nil {
		return fmt.Errorf("encode sign-on request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return fmt.Errorf("sign-on exchange: %w", err)
	}
	if !resp.OK() {
		return &AcquireError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	root, err := qbxml.Unmarshal(resp.Body)
	if err != nil {
		return fmt.Errorf("decode sign-on response: %w", err)
	}

	ticket := root.Value("SignonMsgsRs", "SignonAppCertRs", "SessionTicket")
	if err := c.SetSession(ticket, time.Time{}, time.Time{}); err != nil {
		return fmt.Errorf("sign-on response carried no session ticket: %w", err)
	}

	c.logger.Info("session acquired", "exchange_id", exchangeID)
	return nil
}

// signonAppCertRq builds the sign-on-by-connection-ticket block used only
// during acquisition.
func (c *Client) signonAppCertRq() qbxml.Node {
	return qbxml.El("SignonMsgsRq",
		qbxml.El("SignonAppCertRq",
			qbxml.Text("ClientDateTime", c.now().Format(clientDateTimeLayout)),
			qbxml.Text("ApplicationLogin", c.cfg.ApplicationLogin),
			qbxml.Text("ConnectionTicket", c.connectionTicket),
			qbxml.Text("Language", c.cfg.Language),
			qbxml.Text("AppID", c.cfg.AppID),
			qbxml.Text("AppVer", c.cfg.AppVer),
		),
	)
}

// signonTicketRq builds the per-request authentication block carrying the
// current session ticket.
func (c *Client) signonTicketRq() qbxml.Node {
	return qbxml.El("SignonMsgsRq",
		qbxml.El("SignonTicketRq",
			qbxml.Text("ClientDateTime", c.now().Format(clientDateTimeLayout)),
			qbxml.Text("SessionTicket", c.session.Ticket),
			qbxml.Text("Language", c.cfg.Language),
			qbxml.Text("AppID", c.cfg.AppID),
			qbxml.Text("AppVer", c.cfg.AppVer),
		),
	)
}
