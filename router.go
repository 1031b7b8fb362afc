// router.go
package main

import (
	"strings"

	"github.com/samber/lo"
)

// route forwards a chat message and acknowledges delivery to the originating
// connection once every recipient write has been attempted.
//
// The sender is always the identity bound to the originating connection, whatever
// the payload claims. A direct message to an identity with no open connection is
// dropped without an acknowledgement: there is no offline inbox.
func (m *ClientManager) route(from *Client, msg ChatMessage) error {
	sender, ok := m.registry.Identity(from)
	if !ok {
		return ErrNotJoined
	}
	if strings.TrimSpace(msg.Body) == "" {
		return ErrEmptyBody
	}

	msg.Sender = sender
	deliveredAt := m.now().UTC()
	msg.DeliveredAt = &deliveredAt

	var targets []*Client
	if msg.IsBroadcast() {
		targets = m.registry.Connections()
	} else {
		recipients := m.registry.ConnectionsFor(*msg.Recipient)
		if len(recipients) == 0 {
			from.log.Debug("Recipient offline, message dropped",
				"id", msg.ID, "recipient", *msg.Recipient)
			return nil
		}
		// echo to every session of the sender, once per connection
		targets = lo.Uniq(append(recipients, m.registry.ConnectionsFor(sender)...))
	}

	if err := m.emit(targets, EventChatMessage, msg); err != nil {
		return err
	}
	return m.emit([]*Client{from}, EventMessageDelivered, Ack{ID: msg.ID})
}
