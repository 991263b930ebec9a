package xmlcore

import "sync"

// Config is the process-wide collection of primitive switches from
// spec.md §6. It is never read mid-parse: a Parser snapshots it at
// construction time (newParser and newLexer copy the Config value), so
// mutating the global between
// parses is safe but mutating it while a parse is in flight is not.
type Config struct {
	DocName                 string
	ChunkSize               int
	PreserveSpace           bool
	PreserveComment         bool
	PreserveCDATA           bool
	TransposeText           bool
	StrictTranspose         bool
	IndentSpaceSize         int
	ShowDocAsTopLevel       bool
	PrintFancy              bool
	ShowWarnings            bool
	EnableDebugging         bool
	PreserveDTDStructure    bool
	EnsureNSAttributeUnique bool
	AllowDefaultNamespace   bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DocName:                 "XMLDocument",
		ChunkSize:               defaultChunkSize,
		PreserveSpace:           true,
		PreserveComment:         true,
		PreserveCDATA:           true,
		TransposeText:           true,
		StrictTranspose:         false,
		IndentSpaceSize:         2,
		ShowDocAsTopLevel:       true,
		PrintFancy:              true,
		ShowWarnings:            true,
		EnableDebugging:         false,
		PreserveDTDStructure:    false,
		EnsureNSAttributeUnique: true,
		AllowDefaultNamespace:   true,
	}
}

var (
	globalConfigMu sync.RWMutex
	globalConfig   = DefaultConfig()
)

// SetConfig replaces the process-wide configuration snapshot used by Parse
// calls that don't supply their own Config.
func SetConfig(c Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = c
}

// GetConfig returns the current process-wide configuration.
func GetConfig() Config {
	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}
