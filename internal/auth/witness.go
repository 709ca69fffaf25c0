// Package auth implements the authorization gate: deciding whether an invocation is attributed to an account.
package auth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/stellar/go/hash"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
)

var (
	ErrInvalidAccount   = errors.New("invalid account id")
	ErrInvalidSignature = errors.New("signature does not verify")
)

// Witness reports which accounts the current invocation is attributed to. It never mutates state.
type Witness interface {
	IsAuthorized(identity string) bool
}

// AccountSet is a witness covering a fixed set of accounts
type AccountSet map[string]bool

// For returns a witness covering exactly the given accounts.
// Used by trusted hosts that verify callers themselves, and by tests.
func For(accounts ...string) AccountSet {
	set := make(AccountSet, len(accounts))
	for _, account := range accounts {
		set[account] = true
	}
	return set
}

// Anonymous is a witness covering no account
var Anonymous = AccountSet{}

// IsAuthorized implements Witness
func (s AccountSet) IsAuthorized(identity string) bool {
	return identity != "" && s[identity]
}

// Accounts lists the covered accounts in sorted order
func (s AccountSet) Accounts() []string {
	accounts := make([]string, 0, len(s))
	for account := range s {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}

// ValidAccount reports whether id is a Stellar account ID (G... strkey)
func ValidAccount(id string) bool {
	return strkey.IsValidEd25519PublicKey(id)
}

// Sequenced is a witness whose signatures are bound to per-account sequence numbers.
// The engine consumes every sequence inside the same atomic unit as the operation, so a signed
// invocation takes effect at most once.
type Sequenced interface {
	Witness
	Sequences() map[string]uint64
}

// SignedSet covers the accounts whose signatures verified, each at the sequence it signed
type SignedSet struct {
	AccountSet
	sequences map[string]uint64
}

// NewSignedSet returns a witness covering the given accounts at the given sequences
func NewSignedSet(sequences map[string]uint64) *SignedSet {
	s := &SignedSet{
		AccountSet: make(AccountSet, len(sequences)),
		sequences:  make(map[string]uint64, len(sequences)),
	}
	for account, seq := range sequences {
		s.AccountSet[account] = true
		s.sequences[account] = seq
	}
	return s
}

// Sequences implements Sequenced
func (s *SignedSet) Sequences() map[string]uint64 {
	out := make(map[string]uint64, len(s.sequences))
	for account, seq := range s.sequences {
		out[account] = seq
	}
	return out
}

// Signature is one signer's ed25519 signature together with the sequence it was made at
type Signature struct {
	Sequence uint64
	Sig      []byte
}

// Payload returns the bytes one signer signs: a hash over the network ID, the signer's account and
// sequence, the operation name, and the base64 XDR arguments.
func Payload(networkPassphrase, account string, sequence uint64, operation string, args []string) []byte {
	networkID := network.ID(networkPassphrase)

	data := make([]byte, 0, len(networkID)+len(account)+8+len(operation)+64*len(args))
	data = append(data, networkID[:]...)
	data = append(data, account...)
	data = binary.BigEndian.AppendUint64(data, sequence)
	data = append(data, operation...)
	for _, arg := range args {
		data = append(data, 0)
		data = append(data, arg...)
	}

	digest := hash.Hash(data)
	return digest[:]
}

// Sign signs payload with the given secret key pair
func Sign(kp *keypair.Full, payload []byte) ([]byte, error) {
	sig, err := kp.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	return sig, nil
}

// VerifySignatures checks each signature against its signer's payload and returns a witness covering
// the signers at their signed sequences. A single bad signature rejects the whole set.
func VerifySignatures(networkPassphrase, operation string, args []string, signatures map[string]Signature) (*SignedSet, error) {
	sequences := make(map[string]uint64, len(signatures))
	for account, sig := range signatures {
		kp, err := keypair.ParseAddress(account)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAccount, account)
		}
		payload := Payload(networkPassphrase, account, sig.Sequence, operation, args)
		if err := kp.Verify(payload, sig.Sig); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, account)
		}
		sequences[account] = sig.Sequence
	}
	return NewSignedSet(sequences), nil
}
