package core

import "errors"

// Error kinds surfaced by the transaction and report pipelines. Callers wrap
// the underlying cause next to the kind so both match with errors.Is.
var (
	ErrInvalidDateKind        = errors.New("invalid date kind")
	ErrInvalidFilter          = errors.New("invalid filter")
	ErrQueryFailure           = errors.New("query failure")
	ErrWriteFailure           = errors.New("write failure")
	ErrReportGeneration       = errors.New("report generation failure")
	ErrInvalidTransactionDate = errors.New("invalid transaction date")
	ErrReportSuperseded       = errors.New("report superseded by a newer request")
)
