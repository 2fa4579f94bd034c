package state

import "log/slog"

// IsPaused reports whether module is halted. Read failures count as paused.
func (tx *Tx) IsPaused(module string) bool {
	var paused bool
	ok, err := tx.KVGet(PauseKey(module), &paused)
	if err != nil {
		slog.Warn("pause flag unreadable", "module", module, "error", err)
		return true
	}
	return ok && paused
}

// SetPaused records the pause flag of module.
func (tx *Tx) SetPaused(module string, paused bool) error {
	return tx.KVPut(PauseKey(module), paused)
}
