// Package ftp implements the reliable request/response state machine that
// carries a file-transfer sub-protocol over an unreliable datagram bus. It
// owns payload framing, sequence-number arithmetic, session handling,
// retry/timeout logic, duplicate-ack suppression and serialization of
// concurrent user requests through a single in-flight session.
//
// The server side of the protocol, streaming/burst reads, multi-system
// transport multiplexing, cross-restart recovery and peer authentication
// are explicitly out of scope.
package ftp

// MaxData is the largest number of data bytes a payload may carry, derived
// from the outer message's capacity minus the 12-byte header.
const MaxData = 239

// HeaderSize is the wire size of the fixed payload prefix.
const HeaderSize = 12

// Retries is the default number of attempts per protocol step (the first
// send plus Retries-1 resends) before a job fails with Timeout.
const Retries = 4

// Opcode identifies the operation a payload requests, or (on a response)
// whether it was acknowledged or rejected.
type Opcode uint8

const (
	OpNone      Opcode = 0
	OpTerminate Opcode = 1
	OpReset     Opcode = 2
	OpList      Opcode = 3
	OpOpenRO    Opcode = 4
	OpRead      Opcode = 5
	OpCreate    Opcode = 6
	OpWrite     Opcode = 7
	OpRemove    Opcode = 8
	OpCreateDir Opcode = 9
	OpRemoveDir Opcode = 10
	OpOpenWO    Opcode = 11
	OpTruncate  Opcode = 12
	OpRename    Opcode = 13
	OpCalcCRC32 Opcode = 14
	OpBurstRead Opcode = 15

	OpAck Opcode = 128
	OpNak Opcode = 129
)

// NakCode is the first data byte of a NAK payload, naming why the
// request was rejected.
type NakCode uint8

const (
	NakNone             NakCode = 0
	NakFail             NakCode = 1
	NakFailErrno        NakCode = 2
	NakInvalidDataSize  NakCode = 3
	NakInvalidSession   NakCode = 4
	NakNoSessions       NakCode = 5
	NakEOF              NakCode = 6
	NakUnknownCommand   NakCode = 7
	NakFileExists       NakCode = 8
	NakFileProtected    NakCode = 9
	NakFileDoesNotExist NakCode = 10
	NakTimeout          NakCode = 11
	NakFileIOError      NakCode = 12
)

// errnoENOENT is the second NAK data byte value the server sends alongside
// NakFailErrno when the underlying errno was ENOENT. The client re-maps
// that combination to a file-does-not-exist result.
const errnoENOENT = 2
