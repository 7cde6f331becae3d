package ir

// ActionURI names a protocol action, e.g. "Protector.startTransfer".
type ActionURI string

// Invocation is the journal record of a call, written before it executes.
type Invocation struct {
	ID            string    `json:"id"`
	FlowToken     string    `json:"flow_token"`
	ActionURI     ActionURI `json:"action_uri"`
	Args          IRObject  `json:"args"`
	Seq           int64     `json:"seq"`
	Sender        string    `json:"sender"`
	BlockTime     int64     `json:"block_time"`
	ManifestHash  string    `json:"manifest_hash"`
	EngineVersion string    `json:"engine_version"`
	IRVersion     string    `json:"ir_version"`
}

// Completion records the outcome of an invocation. OutputCase is "Success"
// or the rejection code.
type Completion struct {
	ID           string   `json:"id"`
	InvocationID string   `json:"invocation_id"`
	OutputCase   string   `json:"output_case"`
	Result       IRObject `json:"result"`
	Seq          int64    `json:"seq"`
}

// Signal is an observable event emitted by a successful completion. Args
// keep the order the contract emitted them in.
type Signal struct {
	ID           string  `json:"id"`
	CompletionID string  `json:"completion_id"`
	Seq          int64   `json:"seq"`
	Source       string  `json:"source"`
	Name         string  `json:"name"`
	Args         IRArray `json:"args"`
}

// SuccessCase is the output case of a call that was applied.
const SuccessCase = "Success"
