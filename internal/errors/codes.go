package errors

// Error codes for the lazyjit middle-end.
// Codes identify both fatal contract violations raised by the analyses and
// passes, and the recoverable diagnostics produced while reading textual IR.
//
// Error code ranges:
// E0001-E0099: Lattice misuse
// E0100-E0199: Graph inconsistency
// E0200-E0299: Fixed-point iteration
// E0300-E0399: Textual IR errors
// E0400-E0499: Configuration errors

const (
	// E0001: typed accessor called on a lattice value in another state
	ErrorLatticeState = "E0001"

	// E0002: constant accessor on a definition that does not encode a literal
	ErrorNotALiteral = "E0002"

	// E0003: merging abstract states with different operand stack depths
	ErrorStackMismatch = "E0003"

	// E0004: popping or peeking below the bottom of the abstract stack
	ErrorStackUnderflow = "E0004"

	// E0100: successor edge pointing at a deleted or foreign block
	ErrorDanglingEdge = "E0100"

	// E0101: assume bound to a checkpoint that is missing or unreachable
	ErrorOrphanAssume = "E0101"

	// E0102: checkpoint without a deoptimization successor
	ErrorMissingDeopt = "E0102"

	// E0103: checkpoint or branch that is not the last instruction of its block
	ErrorMisplacedTerminator = "E0103"

	// E0104: operand referencing an instruction no longer in the graph
	ErrorStaleReference = "E0104"

	// E0105: cursor or block index out of range during an edit
	ErrorBadCursor = "E0105"

	// E0106: branch block whose successors are not both set
	ErrorBadBranch = "E0106"

	// E0107: checkpoint replacement chain that leads back to itself
	ErrorReplacementCycle = "E0107"

	// E0200: fixed-point iteration exceeded its visit bound
	ErrorNonTermination = "E0200"

	// E0300: text could not be parsed
	ErrorSyntax = "E0300"

	// E0301: reference to an undefined value
	ErrorUndefinedValue = "E0301"

	// E0302: reference to an undefined block label
	ErrorUndefinedBlock = "E0302"

	// E0303: unknown opcode mnemonic
	ErrorUnknownOpcode = "E0303"

	// E0304: operand of the wrong shape for the opcode
	ErrorBadOperand = "E0304"

	// E0305: value or label defined twice
	ErrorDuplicateDefinition = "E0305"

	// E0400: configuration file could not be decoded
	ErrorBadConfig = "E0400"
)
