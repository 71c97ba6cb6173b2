package types

// Raw records delivered by the streaming node. These mirror the wire shape of
// a geyser subscription update closely enough that the decoders can address
// account keys, instructions, balances and log messages positionally without
// depending on the node client itself.

// CompiledInstruction is one instruction of a transaction message, with its
// program referenced by index into the account-key table.
type CompiledInstruction struct {
	ProgramIDIndex uint32
	Accounts       []byte
	Data           []byte
}

// InnerInstructionGroup holds the inner instructions triggered by one
// top-level instruction.
type InnerInstructionGroup struct {
	Index        uint32
	Instructions []CompiledInstruction
}

// UITokenAmount is the human-readable token amount attached to a token balance.
type UITokenAmount struct {
	Amount   string
	Decimals uint32
}

// TokenBalance is a pre- or post-transaction token account balance.
type TokenBalance struct {
	AccountIndex  uint32
	Mint          string
	Owner         string
	UITokenAmount *UITokenAmount
}

// MessageHeader carries the signature layout of a transaction message.
type MessageHeader struct {
	NumRequiredSignatures       uint32
	NumReadonlySignedAccounts   uint32
	NumReadonlyUnsignedAccounts uint32
}

// TxMessage is the static part of a transaction: account keys, blockhash and
// compiled instructions.
type TxMessage struct {
	Header          *MessageHeader
	AccountKeys     [][]byte
	RecentBlockhash []byte
	Instructions    []CompiledInstruction
}

// TxMeta is the execution metadata: fee, balances, logs and inner instructions.
type TxMeta struct {
	Fee               uint64
	PreBalances       []uint64
	PostBalances      []uint64
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	InnerInstructions []InnerInstructionGroup
}

// TxRecord is one confirmed transaction from the stream, paired with its slot.
type TxRecord struct {
	Signature []byte
	Slot      uint64
	Message   *TxMessage
	Meta      *TxMeta
}

// AccountRecord is one account snapshot from the stream.
type AccountRecord struct {
	Pubkey []byte
	Owner  []byte
	Data   []byte
	Slot   uint64
}
