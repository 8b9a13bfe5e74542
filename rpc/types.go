package rpc

import (
	"encoding/hex"

	"multiswap/core/types"
	"multiswap/native/escrow"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      uint32 `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ReceiptResponse reports the outcome of a submitted transaction.
type ReceiptResponse struct {
	TxHash    string         `json:"txHash"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	ErrorCode uint32         `json:"errorCode,omitempty"`
	Events    []*types.Event `json:"events,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

func newReceiptResponse(r *types.Receipt, requestID string) ReceiptResponse {
	return ReceiptResponse{
		TxHash:    hex.EncodeToString(r.TxHash[:]),
		Success:   r.Success,
		Error:     r.Error,
		ErrorCode: r.ErrorCode,
		Events:    r.Events,
		RequestID: requestID,
	}
}

// TokenView is the decoded state of a token account.
type TokenView struct {
	Mint      string `json:"mint"`
	Authority string `json:"authority"`
	Amount    uint64 `json:"amount"`
}

// AccountResponse describes one ledger account.
type AccountResponse struct {
	Address    string     `json:"address"`
	Owner      string     `json:"owner"`
	Lamports   uint64     `json:"lamports"`
	Executable bool       `json:"executable"`
	DataLen    int        `json:"dataLen"`
	Data       string     `json:"data,omitempty"`
	Token      *TokenView `json:"token,omitempty"`
}

// EscrowResponse describes the record held by an escrow account.
type EscrowResponse struct {
	Address  string             `json:"address"`
	Lamports uint64             `json:"lamports"`
	Record   *escrow.RecordView `json:"record"`
}

// EscrowEventView is one indexed lifecycle event.
type EscrowEventView struct {
	Sequence     uint64 `json:"sequence"`
	Escrow       string `json:"escrow"`
	Type         string `json:"type"`
	Initiator    string `json:"initiator"`
	Counterparty string `json:"counterparty"`
	TermsHash    string `json:"termsHash"`
	Direction    string `json:"direction"`
	Reserve      string `json:"reserve"`
	LegsA        int    `json:"legsA"`
	LegsB        int    `json:"legsB"`
	RecordedAt   string `json:"recordedAt"`
}

// DecodeRequest carries a hex-encoded escrow instruction buffer.
type DecodeRequest struct {
	Data string `json:"data"`
}
