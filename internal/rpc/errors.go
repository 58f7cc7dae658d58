// Package rpc implements zallet's JSON-RPC surface: a dcrjson-style
// request/response envelope, legacy numeric error codes, and one handler
// per method, each operating against a single wired *wallet.Wallet.
package rpc

import (
	"errors"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/address"
	"github.com/zallet-core/zallet/internal/zerr"
)

// Code is the legacy, bitcoind/zcashd-derived numeric error-code space
// these RPCs report, carried through dcrjson.RPCError.
type Code int32

const (
	CodeMisc                   Code = -1
	CodeTypeError               Code = -3
	CodeInvalidAddressOrKey     Code = -5
	CodeInsufficientFunds       Code = -6
	CodeInvalidParameter        Code = -8
	CodeWalletUnlockNeeded      Code = -13
	CodeWalletPassphraseIncorrect Code = -14
	CodeVerifyError             Code = -25
)

func newErr(code Code, msg string) *dcrjson.RPCError {
	return dcrjson.NewRPCError(dcrjson.RPCErrorCode(code), msg)
}

// translate maps a zerr sentinel (or wrapped struct) to its legacy RPC
// error code, falling back to CodeMisc for anything unrecognized.
func translate(err error) *dcrjson.RPCError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, zerr.ErrLocked):
		return newErr(CodeWalletUnlockNeeded, err.Error())
	case errors.Is(err, zerr.ErrCrypto):
		return newErr(CodeWalletPassphraseIncorrect, err.Error())
	case errors.Is(err, zerr.ErrInvalidAddress), errors.Is(err, zerr.ErrUnknownAddress),
		errors.Is(err, address.ErrInvalidAddress), errors.Is(err, address.ErrNotP2PKH):
		return newErr(CodeInvalidAddressOrKey, err.Error())
	case errors.Is(err, zerr.ErrInsufficientFunds):
		return newErr(CodeInsufficientFunds, err.Error())
	case errors.Is(err, zerr.ErrInvalidMemo):
		return newErr(CodeInvalidParameter, err.Error())
	case errors.Is(err, zerr.ErrPrivacyPolicyViolation), errors.Is(err, zerr.ErrExcessOrchardActions):
		return newErr(CodeVerifyError, err.Error())
	case errors.Is(err, zerr.ErrUnknownFingerprint):
		return newErr(CodeInvalidParameter, err.Error())
	default:
		return newErr(CodeMisc, err.Error())
	}
}

func invalidParams(msg string) *dcrjson.RPCError {
	return newErr(CodeInvalidParameter, msg)
}
