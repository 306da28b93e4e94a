package errors

// ERR is the machine-readable error code carried by every Error.
type ERR int

const (
	ERRUnknown ERR = iota
	ERRInvalidArgument
	ERRConfiguration
	ERRProcessing
	ERRBlockNotFound
	ERRBlockInvalid
	ERRBlockExists
	ERRTxInvalid
	ERRTxNotFound
	ERRUtxoSpent
	ERRStorage
	ERRStorageNotStarted
	ERRReorgFailed
	ERRCheckpointViolation
	ERRServiceError
)

func (e ERR) String() string {
	switch e {
	case ERRInvalidArgument:
		return "INVALID_ARGUMENT"
	case ERRConfiguration:
		return "CONFIGURATION"
	case ERRProcessing:
		return "PROCESSING"
	case ERRBlockNotFound:
		return "BLOCK_NOT_FOUND"
	case ERRBlockInvalid:
		return "BLOCK_INVALID"
	case ERRBlockExists:
		return "BLOCK_EXISTS"
	case ERRTxInvalid:
		return "TX_INVALID"
	case ERRTxNotFound:
		return "TX_NOT_FOUND"
	case ERRUtxoSpent:
		return "UTXO_SPENT"
	case ERRStorage:
		return "STORAGE"
	case ERRStorageNotStarted:
		return "STORAGE_NOT_STARTED"
	case ERRReorgFailed:
		return "REORG_FAILED"
	case ERRCheckpointViolation:
		return "CHECKPOINT_VIOLATION"
	case ERRServiceError:
		return "SERVICE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Predefined sentinel errors, used as errors.Is targets.
var (
	ErrUnknown             = New(ERRUnknown, "unknown error")
	ErrInvalidArgument     = New(ERRInvalidArgument, "invalid argument")
	ErrConfiguration       = New(ERRConfiguration, "configuration error")
	ErrProcessing          = New(ERRProcessing, "processing error")
	ErrBlockNotFound       = New(ERRBlockNotFound, "block not found")
	ErrBlockInvalid        = New(ERRBlockInvalid, "block invalid")
	ErrBlockExists         = New(ERRBlockExists, "block exists")
	ErrTxInvalid           = New(ERRTxInvalid, "transaction invalid")
	ErrTxNotFound          = New(ERRTxNotFound, "transaction not found")
	ErrUtxoSpent           = New(ERRUtxoSpent, "utxo already spent")
	ErrStorage             = New(ERRStorage, "storage error")
	ErrStorageNotStarted   = New(ERRStorageNotStarted, "storage not started")
	ErrReorgFailed         = New(ERRReorgFailed, "reorg failed")
	ErrCheckpointViolation = New(ERRCheckpointViolation, "checkpoint violation")
	ErrServiceError        = New(ERRServiceError, "service error")
)

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERRUnknown, message, params...)
}

func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERRInvalidArgument, message, params...)
}

func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERRConfiguration, message, params...)
}

func NewProcessingError(message string, params ...interface{}) error {
	return New(ERRProcessing, message, params...)
}

func NewBlockNotFoundError(message string, params ...interface{}) error {
	return New(ERRBlockNotFound, message, params...)
}

func NewBlockInvalidError(message string, params ...interface{}) error {
	return New(ERRBlockInvalid, message, params...)
}

func NewBlockExistsError(message string, params ...interface{}) error {
	return New(ERRBlockExists, message, params...)
}

func NewTxInvalidError(message string, params ...interface{}) error {
	return New(ERRTxInvalid, message, params...)
}

func NewTxNotFoundError(message string, params ...interface{}) error {
	return New(ERRTxNotFound, message, params...)
}

func NewUtxoSpentError(message string, params ...interface{}) error {
	return New(ERRUtxoSpent, message, params...)
}

func NewStorageError(message string, params ...interface{}) error {
	return New(ERRStorage, message, params...)
}

func NewStorageNotStartedError(message string, params ...interface{}) error {
	return New(ERRStorageNotStarted, message, params...)
}

func NewReorgFailedError(message string, params ...interface{}) error {
	return New(ERRReorgFailed, message, params...)
}

func NewCheckpointViolationError(message string, params ...interface{}) error {
	return New(ERRCheckpointViolation, message, params...)
}

func NewServiceError(message string, params ...interface{}) error {
	return New(ERRServiceError, message, params...)
}
