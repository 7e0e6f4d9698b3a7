// internal/blockchain/solbc/errors.go
package solbc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// JSON-RPC codes that describe a request for state the node does not have.
const (
	codeInvalidParams        = -32602
	codeTransactionHistory   = -32011
	codeLongTermStorageSlot  = -32009
	codeBlockNotAvailable    = -32004
	codeNodeUnhealthy        = -32005
	codeSlotSkipped          = -32007
	codeMinContextSlotNotMet = -32016
)

// Error is a classified RPC failure of one method.
type Error struct {
	Method string
	Kind   error // domain.ErrLedgerUnavailable or domain.ErrLedgerRejected
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s]: %v", e.Method, e.Err)
}

// Unwrap exposes both the taxonomy kind and the original error.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify maps a raw RPC failure onto the ledger taxonomy.
func Classify(method string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Method: method, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	if errors.Is(err, rpc.ErrNotFound) {
		return domain.ErrLedgerRejected
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ErrLedgerUnavailable
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeInvalidParams, codeTransactionHistory, codeLongTermStorageSlot:
			return domain.ErrLedgerRejected
		case codeBlockNotAvailable, codeNodeUnhealthy, codeSlotSkipped, codeMinContextSlotNotMet:
			return domain.ErrLedgerUnavailable
		}
		return domain.ErrLedgerUnavailable
	}

	if IsAccountNotFoundError(err) {
		return domain.ErrLedgerRejected
	}
	return domain.ErrLedgerUnavailable
}

// IsAccountNotFoundError reports whether err is a "not found" response.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// DescribeTransactionError renders the on-chain error of a finalized transaction, e.g.
// `{"InstructionError":[1,{"Custom":6004}]}` becomes "instruction 1: custom program error 6004".
func DescribeTransactionError(txErr interface{}) string {
	if txErr == nil {
		return ""
	}
	if s, ok := txErr.(string); ok {
		return s
	}

	if m, ok := txErr.(map[string]interface{}); ok {
		if ie, ok := m["InstructionError"].([]interface{}); ok && len(ie) == 2 {
			idx := fmt.Sprintf("%v", ie[0])
			switch detail := ie[1].(type) {
			case map[string]interface{}:
				if code, ok := detail["Custom"]; ok {
					return fmt.Sprintf("instruction %s: custom program error %v", idx, code)
				}
				raw, _ := json.Marshal(detail)
				return fmt.Sprintf("instruction %s: %s", idx, raw)
			default:
				return fmt.Sprintf("instruction %s: %v", idx, detail)
			}
		}
	}

	raw, err := json.Marshal(txErr)
	if err != nil {
		return fmt.Sprintf("%v", txErr)
	}
	return string(raw)
}
