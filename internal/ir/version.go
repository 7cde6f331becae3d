package ir

const (
	// IRVersion is the journal record schema version.
	IRVersion = "1"

	// EngineVersion is stamped on every invocation.
	EngineVersion = "0.3.0"
)
