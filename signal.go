// signal.go
package main

// relaySignal forwards typing and stop typing verbatim. Nothing is stored and
// nothing is inferred: a client that stops typing has to say so.
func (m *ClientManager) relaySignal(kind string, sig TypingSignal) error {
	targets := m.registry.Connections()
	if !sig.IsBroadcast() {
		targets = m.registry.ConnectionsFor(*sig.To)
	}
	return m.emit(targets, kind, sig)
}
