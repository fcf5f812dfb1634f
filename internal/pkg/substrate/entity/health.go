package entity

// Health is the system_health result. Fields are pointers so that a missing
// key can be told apart from a zero value.
type Health struct {
	Peers           *uint64 `json:"peers" validate:"required"`
	IsSyncing       *bool   `json:"isSyncing" validate:"required"`
	ShouldHavePeers *bool   `json:"shouldHavePeers" validate:"required"`
}

// BlockHashRule is the validator tag for a 32-byte hex block hash.
const BlockHashRule = "required,len=66,startswith=0x,hexadecimal"

const (
	MethodSystemName        = "system_name"
	MethodSystemHealth      = "system_health"
	MethodSystemChain       = "system_chain"
	MethodSystemVersion     = "system_version"
	MethodChainGetBlockHash = "chain_getBlockHash"
)

// MockClientName is what the canned system_name expectation answers.
const MockClientName = "mockClient"
