// Package errors re-exports github.com/cockroachdb/errors and defines the
// failure taxonomy of a monitor run.
//
//	ConfigError   fatal before any network call
//	FetchError    the run aborts, the ledger is untouched
//	DispatchError one record is skipped and retried on the next run
//	LedgerError   the ledger store is unreadable or an append failed
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithStack   = crdb.WithStack
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	GetAllHints = crdb.GetAllHints
	Is          = crdb.Is
	As          = crdb.As
	Unwrap      = crdb.Unwrap
	GetStack    = crdb.GetReportableStackTrace
)

// ConfigError reports a missing or invalid configuration key.
type ConfigError struct {
	Key   string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("config %s: invalid", e.Key)
	}
	return fmt.Sprintf("config %s: %v", e.Key, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// FetchError reports a failure to read or validate a feed snapshot.
type FetchError struct {
	Source string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// DispatchError reports a notification that was not delivered.
type DispatchError struct {
	// Status is the HTTP status, 0 for transport failures.
	Status    int
	Retryable bool
	Cause     error
}

func (e *DispatchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("dispatch: status %d: %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("dispatch: %v", e.Cause)
}

func (e *DispatchError) Unwrap() error { return e.Cause }

// LedgerError reports an unreadable store or a failed append.
type LedgerError struct {
	Path  string
	Cause error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Path, e.Cause)
}

func (e *LedgerError) Unwrap() error { return e.Cause }

func Config(key string, cause error) error {
	return crdb.WithStack(&ConfigError{Key: key, Cause: cause})
}

func Fetch(source string, cause error) error {
	return crdb.WithStack(&FetchError{Source: source, Cause: cause})
}

func Dispatch(status int, retryable bool, cause error) error {
	return crdb.WithStack(&DispatchError{Status: status, Retryable: retryable, Cause: cause})
}

func Ledger(path string, cause error) error {
	return crdb.WithStack(&LedgerError{Path: path, Cause: cause})
}

// Exit codes returned by the CLI.
const (
	ExitOK     = 0
	ExitOther  = 1
	ExitConfig = 2
	ExitFetch  = 3
	ExitLedger = 4
)

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	var fetchErr *FetchError
	var ledgerErr *LedgerError
	switch {
	case crdb.As(err, &cfgErr):
		return ExitConfig
	case crdb.As(err, &fetchErr):
		return ExitFetch
	case crdb.As(err, &ledgerErr):
		return ExitLedger
	default:
		return ExitOther
	}
}

// Kind names the taxonomy bucket of err, for metrics labels.
func Kind(err error) string {
	var dispatchErr *DispatchError
	switch ExitCode(err) {
	case ExitOK:
		return ""
	case ExitConfig:
		return "config"
	case ExitFetch:
		return "fetch"
	case ExitLedger:
		return "ledger"
	}
	if crdb.As(err, &dispatchErr) {
		return "dispatch"
	}
	return "other"
}
