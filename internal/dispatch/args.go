package dispatch

import (
	"fmt"
	"math"

	"github.com/stellar/go/xdr"
)

// String builds a string argument
func String(s string) xdr.ScVal {
	return mustScVal(xdr.ScValTypeScvString, xdr.ScString(s))
}

// Symbol builds a symbol argument (accepted wherever a string is expected)
func Symbol(s string) xdr.ScVal {
	return mustScVal(xdr.ScValTypeScvSymbol, xdr.ScSymbol(s))
}

// Int builds a signed 64-bit integer argument
func Int(i int64) xdr.ScVal {
	return mustScVal(xdr.ScValTypeScvI64, xdr.Int64(i))
}

// Account builds an address argument from a Stellar account ID
func Account(address string) (xdr.ScVal, error) {
	accountID, err := xdr.AddressToAccountId(address)
	if err != nil {
		return xdr.ScVal{}, fmt.Errorf("invalid account %q: %w", address, err)
	}
	return xdr.NewScVal(xdr.ScValTypeScvAddress, xdr.ScAddress{
		Type:      xdr.ScAddressTypeScAddressTypeAccount,
		AccountId: &accountID,
	})
}

func mustScVal(t xdr.ScValType, value interface{}) xdr.ScVal {
	v, err := xdr.NewScVal(t, value)
	if err != nil {
		panic(err)
	}
	return v
}

// EncodeArgs encodes arguments as base64 XDR, the form they are signed and sent in
func EncodeArgs(args []xdr.ScVal) ([]string, error) {
	encoded := make([]string, len(args))
	for i, arg := range args {
		s, err := xdr.MarshalBase64(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode argument %d: %w", i, err)
		}
		encoded[i] = s
	}
	return encoded, nil
}

// DecodeArgs decodes base64 XDR arguments
func DecodeArgs(encoded []string) ([]xdr.ScVal, error) {
	args := make([]xdr.ScVal, len(encoded))
	for i, s := range encoded {
		if err := xdr.SafeUnmarshalBase64(s, &args[i]); err != nil {
			return nil, fmt.Errorf("failed to decode argument %d: %w", i, err)
		}
	}
	return args, nil
}

// argList reads typed values out of positional arguments
type argList []xdr.ScVal

// str accepts strings, symbols and addresses
func (a argList) str(i int, name string) (string, error) {
	v := a[i]
	switch v.Type {
	case xdr.ScValTypeScvString:
		return string(v.MustStr()), nil
	case xdr.ScValTypeScvSymbol:
		return string(v.MustSym()), nil
	case xdr.ScValTypeScvAddress:
		addr, err := v.MustAddress().String()
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return addr, nil
	}
	return "", fmt.Errorf("%s: expected string, got %s", name, v.Type)
}

// int accepts any integer type that fits in an int64
func (a argList) int(i int, name string) (int64, error) {
	v := a[i]
	switch v.Type {
	case xdr.ScValTypeScvI64:
		return int64(v.MustI64()), nil
	case xdr.ScValTypeScvI32:
		return int64(v.MustI32()), nil
	case xdr.ScValTypeScvU32:
		return int64(v.MustU32()), nil
	case xdr.ScValTypeScvU64:
		u := uint64(v.MustU64())
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%s: %d overflows int64", name, u)
		}
		return int64(u), nil
	}
	return 0, fmt.Errorf("%s: expected integer, got %s", name, v.Type)
}
