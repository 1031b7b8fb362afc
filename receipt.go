// receipt.go
package main

// markRead forwards a read acknowledgement to every connection of the original
// sender. Repeats are forwarded again; consumers tolerate duplicates.
func (m *ClientManager) markRead(receipt ReadReceipt) error {
	return m.emit(m.registry.ConnectionsFor(receipt.To), EventMessageRead, Ack{ID: receipt.ID})
}
