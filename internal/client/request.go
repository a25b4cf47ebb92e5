package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/inercia/qbconnect/internal/qbxml"
)

// MakeRequest is the shorthand call form: the given messages are wrapped in
// a QBXMLMsgsRq element and sent as the business payload of one exchange.
// It is exactly equivalent to Do with a pre-wrapped body.
func (c *Client) MakeRequest(ctx context.Context, msgs ...qbxml.Node) (qbxml.Node, error) {
	return c.Do(ctx, qbxml.Nodes{qbxml.El("QBXMLMsgsRq", msgs...)})
}

// Do sends an already-shaped envelope body (the ordered top-level message
// sets of the document). If the body carries no SignonMsgsRq of its own,
// the client authenticates it: a valid session's ticket block is prepended,
// acquiring a fresh session first when necessary. Bodies that do carry a
// SignonMsgsRq are sent as-is.
//
// One call is one HTTP exchange, plus at most one prerequisite sign-on
// exchange, sequentially. There is no retry: every failure propagates to
// the caller, and a failed acquisition leaves session state unchanged.
//
// On success the session's use expiration slides forward by the use window
// (the issue expiration never moves) and the decoded response envelope is
// returned without interpretation of business-level status codes.
func (c *Client) Do(ctx context.Context, body qbxml.Nodes) (qbxml.Node, error) {
	envelope := body
	if !hasSignon(body) {
		if !c.ValidSession() {
			if err := c.AcquireSession(ctx); err != nil {
				return qbxml.Node{}, err
			}
		}
		envelope = make(qbxml.Nodes, 0, len(body)+1)
		envelope = append(envelope, c.signonTicketRq())
		envelope = append(envelope, body...)
	}

	exchangeID := uuid.NewString()
	data, err := qbxml.Marshal(envelope, c.qbVersion)
	if err != nil {
		return qbxml.Node{}, fmt.Errorf("encode request: %w", err)
	}

	c.logger.Debug("sending request", "exchange_id", exchangeID, "bytes", len(data))

	resp, err := c.post(ctx, data)
	if err != nil {
		return qbxml.Node{}, fmt.Errorf("request exchange: %w", err)
	}
	if !resp.OK() {
		return qbxml.Node{}, &RequestError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	// Sliding-window renewal: each successful request extends the
	// inactivity deadline only.
	if c.session.Ticket != "" {
		c.session.UseExpiration = c.now().Add(c.useWindow)
	}

	root, err := qbxml.Unmarshal(resp.Body)
	if err != nil {
		return qbxml.Node{}, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("request complete", "exchange_id", exchangeID)
	return root, nil
}

// hasSignon reports whether the body already carries its own sign-on block.
func hasSignon(body qbxml.Nodes) bool {
	for _, n := range body {
		if n.Name == "SignonMsgsRq" {
			return true
		}
	}
	return false
}
