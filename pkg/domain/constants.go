package domain

// Strategy names a code generation strategy.
type Strategy string

const (
	// StrategyAuto lets the selector pick from the graph topology.
	StrategyAuto Strategy = ""
	// StrategyNative emits nested if/then/else and choose blocks.
	StrategyNative Strategy = "native"
	// StrategyStateMachine emits a dispatcher loop over a state variable.
	StrategyStateMachine Strategy = "state-machine"
)

// Valid reports whether s is a known strategy (auto included).
func (s Strategy) Valid() bool {
	return s == StrategyAuto || s == StrategyNative || s == StrategyStateMachine
}

// MetadataKey is the variable under which the editor layout is stored in documents.
const MetadataKey = "_cafe_metadata"

// State machine vocabulary.
const (
	StateVariable = "cafe_state"
	StateEnd      = "__end__"
)
