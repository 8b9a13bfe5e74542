package types

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"multiswap/crypto"
)

var (
	ErrInvalidSignature = errors.New("transaction: invalid signature")
	ErrUnexpectedSigner = errors.New("transaction: signature from account not marked as signer")
)

// AccountMeta describes one account slot of an instruction.
type AccountMeta struct {
	PublicKey  crypto.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"isSigner"`
	IsWritable bool             `json:"isWritable"`
}

// Instruction is a single program invocation: the program id, the ordered
// account slots it reads, and its raw data buffer.
type Instruction struct {
	ProgramID crypto.PublicKey `json:"programId"`
	Accounts  []AccountMeta    `json:"accounts"`
	Data      []byte           `json:"data"`
}

// Signature binds a signer key to an ed25519 signature over the message.
type Signature struct {
	Signer    crypto.PublicKey `json:"signer"`
	Signature []byte           `json:"signature"`
}

// Transaction wraps one instruction with a nonce and the signatures of every
// account slot flagged IsSigner.
type Transaction struct {
	Instruction Instruction `json:"instruction"`
	Nonce       uint64      `json:"nonce"`
	Signatures  []Signature `json:"signatures"`
}

type accountMetaRLP struct {
	PublicKey  []byte
	IsSigner   bool
	IsWritable bool
}

type messageRLP struct {
	ProgramID []byte
	Accounts  []accountMetaRLP
	Data      []byte
	Nonce     uint64
}

// Message returns the canonical RLP bytes covered by signatures.
func (tx *Transaction) Message() ([]byte, error) {
	if tx == nil {
		return nil, errors.New("transaction: nil transaction")
	}
	msg := messageRLP{
		ProgramID: tx.Instruction.ProgramID.Bytes(),
		Accounts:  make([]accountMetaRLP, len(tx.Instruction.Accounts)),
		Data:      tx.Instruction.Data,
		Nonce:     tx.Nonce,
	}
	if msg.Data == nil {
		msg.Data = []byte{}
	}
	for i, meta := range tx.Instruction.Accounts {
		msg.Accounts[i] = accountMetaRLP{
			PublicKey:  meta.PublicKey.Bytes(),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}
	return rlp.EncodeToBytes(&msg)
}

// Hash returns the keccak256 digest of the message.
func (tx *Transaction) Hash() ([32]byte, error) {
	msg, err := tx.Message()
	if err != nil {
		return [32]byte{}, err
	}
	return ethcrypto.Keccak256Hash(msg), nil
}

// Sign appends a signature for each key. Keys that already signed are
// re-signed in place.
func (tx *Transaction) Sign(keys ...*crypto.PrivateKey) error {
	msg, err := tx.Message()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key == nil {
			return errors.New("transaction: nil signing key")
		}
		pub := key.PublicKey()
		sig := Signature{Signer: pub, Signature: key.Sign(msg)}
		replaced := false
		for i := range tx.Signatures {
			if tx.Signatures[i].Signer == pub {
				tx.Signatures[i] = sig
				replaced = true
			}
		}
		if !replaced {
			tx.Signatures = append(tx.Signatures, sig)
		}
	}
	return nil
}

// VerifySignatures checks every attached signature and returns the set of
// keys that signed. Signatures from keys not flagged as signers are rejected.
func (tx *Transaction) VerifySignatures() (map[crypto.PublicKey]bool, error) {
	msg, err := tx.Message()
	if err != nil {
		return nil, err
	}
	declared := make(map[crypto.PublicKey]bool)
	for _, meta := range tx.Instruction.Accounts {
		if meta.IsSigner {
			declared[meta.PublicKey] = true
		}
	}
	signed := make(map[crypto.PublicKey]bool, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		if !declared[sig.Signer] {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedSigner, sig.Signer)
		}
		if !crypto.Verify(sig.Signer, msg, sig.Signature) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, sig.Signer)
		}
		signed[sig.Signer] = true
	}
	return signed, nil
}

// Receipt records the outcome of executing a transaction.
type Receipt struct {
	TxHash    [32]byte `json:"txHash"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	ErrorCode uint32   `json:"errorCode,omitempty"`
	Events    []*Event `json:"events,omitempty"`
}
