package main

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"sunnydapp/internal/auth"
	"sunnydapp/internal/dispatch"
	"sunnydapp/internal/models"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/xdr"
)

// parseArg turns a prefixed command line argument into an ScVal
func parseArg(raw string) (xdr.ScVal, error) {
	prefix, value, found := strings.Cut(raw, ":")
	if !found || len(prefix) != 1 {
		return dispatch.String(raw), nil
	}

	switch prefix {
	case "s":
		return dispatch.String(value), nil
	case "y":
		return dispatch.Symbol(value), nil
	case "a":
		return dispatch.Account(value)
	case "i":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return xdr.ScVal{}, fmt.Errorf("invalid int64 %q: %w", value, err)
		}
		return dispatch.Int(n), nil
	case "u":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return xdr.ScVal{}, fmt.Errorf("invalid uint64 %q: %w", value, err)
		}
		return xdr.NewScVal(xdr.ScValTypeScvU64, xdr.Uint64(n))
	}
	return dispatch.String(raw), nil
}

// buildRequest encodes the arguments and has every signer sign its payload at its sequence
func buildRequest(passphrase, operation string, rawArgs []string, signers []*keypair.Full, sequences map[string]uint64) (*models.InvokeRequest, error) {
	args := make([]xdr.ScVal, len(rawArgs))
	for i, raw := range rawArgs {
		v, err := parseArg(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}

	encoded, err := dispatch.EncodeArgs(args)
	if err != nil {
		return nil, err
	}

	req := &models.InvokeRequest{
		Operation:  operation,
		Args:       encoded,
		Signatures: make(map[string]string, len(signers)),
		Sequences:  make(map[string]uint64, len(signers)),
	}

	for _, kp := range signers {
		seq := sequences[kp.Address()]
		sig, err := auth.Sign(kp, auth.Payload(passphrase, kp.Address(), seq, operation, encoded))
		if err != nil {
			return nil, err
		}
		req.Signatures[kp.Address()] = base64.StdEncoding.EncodeToString(sig)
		req.Sequences[kp.Address()] = seq
	}
	return req, nil
}
