package common

import "fmt"

// Module names understood by the pause guard.
const (
	ModuleVault = "vault"
	ModulePool  = "pool"
)

// PauseView reports whether the authority has halted a module.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused when module is halted. A nil view never
// blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}

// KnownModule reports whether module can be paused.
func KnownModule(module string) bool {
	switch module {
	case ModuleVault, ModulePool:
		return true
	default:
		return false
	}
}
