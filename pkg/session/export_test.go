package session

// ActiveLocks exposes the lock table size to the external tests.
func (m *Manager) ActiveLocks() int {
	return m.activeLocks()
}
