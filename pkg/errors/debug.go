package errors

import (
	"errors"

	"github.com/lib/pq"
)

// DumpInfo flattens an error chain for structured logging.
type DumpInfo struct {
	Code         string
	TopMessage   string
	Chain        []string
	PGCode       string
	PGMessage    string
	PGDetail     string
	PGTable      string
	PGColumn     string
	PGConstraint string
}

// Dump walks the chain, extracting the typed code and any postgres driver
// diagnostics for the log line.
func Dump(err error) DumpInfo {
	info := DumpInfo{}
	if err == nil {
		return info
	}
	info.TopMessage = err.Error()

	if typed := As(err); typed != nil {
		info.Code = string(typed.Code())
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		info.Chain = append(info.Chain, current.Error())
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		info.PGCode = string(pqErr.Code)
		info.PGMessage = pqErr.Message
		info.PGDetail = pqErr.Detail
		info.PGTable = pqErr.Table
		info.PGColumn = pqErr.Column
		info.PGConstraint = pqErr.Constraint
	}
	return info
}
