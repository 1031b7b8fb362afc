// presence.go
package main

// publishRoster sends the full roster, never a delta, to every open connection.
// It runs in the same loop turn as the registry change that caused it.
func (m *ClientManager) publishRoster() {
	roster := m.registry.Roster()
	if err := m.emit(m.registry.Connections(), EventUserList, roster); err != nil {
		m.log.Error("Failed to publish roster", "error", err)
		return
	}
	m.log.Debug("Roster published", "identities", len(roster))
}
