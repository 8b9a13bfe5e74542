package rpc

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"multiswap/core/runtime"
	"multiswap/core/types"
	"multiswap/crypto"
	"multiswap/indexer"
	"multiswap/native/escrow"
	"multiswap/native/token"
)

var (
	errHistoryDisabled = errors.New("escrow event index disabled")
	errNotEscrow       = errors.New("account is not escrow storage")
)

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func keyParam(r *http.Request) (crypto.PublicKey, error) {
	return crypto.ParsePublicKey(chi.URLParam(r, "key"))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var tx types.Transaction
	if err := s.decodeBody(w, r, &tx); err != nil {
		writeError(w, r, http.StatusBadRequest, 0, err)
		return
	}
	requestID := RequestIDFromContext(r.Context())
	receipt, err := s.ledger.Execute(r.Context(), &tx)
	if receipt == nil {
		writeError(w, r, http.StatusInternalServerError, runtime.CodeUnknown, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
		if errors.Is(err, runtime.ErrStateFailure) {
			status = http.StatusInternalServerError
		}
		s.logger.Info("transaction rejected",
			slog.String("request_id", requestID),
			slog.Uint64("code", uint64(receipt.ErrorCode)),
			slog.Any("error", err))
	}
	writeJSON(w, status, newReceiptResponse(receipt, requestID))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, 0, err)
		return
	}
	acc, err := s.ledger.Account(key)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, 0, err)
		return
	}
	resp := AccountResponse{
		Address:    key.String(),
		Owner:      acc.Owner.String(),
		Lamports:   acc.Lamports,
		Executable: acc.Executable,
		DataLen:    len(acc.Data),
	}
	if len(acc.Data) > 0 {
		resp.Data = base64.StdEncoding.EncodeToString(acc.Data)
	}
	if acc.Owner == token.ProgramID {
		if parsed, err := token.Unpack(acc.Data); err == nil {
			resp.Token = &TokenView{
				Mint:      parsed.Mint.String(),
				Authority: parsed.Authority.String(),
				Amount:    parsed.Amount,
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEscrow(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, 0, err)
		return
	}
	acc, err := s.ledger.Account(key)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, 0, err)
		return
	}
	if acc.Owner != s.cfg.EscrowProgramID {
		writeError(w, r, http.StatusNotFound, 0, errNotEscrow)
		return
	}
	rec, err := escrow.ReadRecord(acc.Data)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, escrow.ErrorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, EscrowResponse{
		Address:  key.String(),
		Lamports: acc.Lamports,
		Record:   escrow.DescribeRecord(rec),
	})
}

func (s *Server) handleEscrowEvents(w http.ResponseWriter, r *http.Request) {
	s.serveEvents(w, r, s.historyQuery)
}

// handlePartyEvents lists events naming the key as initiator or
// counterparty, newest first.
func (s *Server) handlePartyEvents(w http.ResponseWriter, r *http.Request) {
	s.serveEvents(w, r, s.partyQuery)
}

func (s *Server) historyQuery(ctx context.Context, key string, limit int) ([]indexer.EscrowEvent, error) {
	return s.history.History(ctx, key, limit)
}

func (s *Server) partyQuery(ctx context.Context, key string, limit int) ([]indexer.EscrowEvent, error) {
	return s.history.ByParty(ctx, key, limit)
}

type eventQuery func(ctx context.Context, key string, limit int) ([]indexer.EscrowEvent, error)

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request, query eventQuery) {
	if s.history == nil {
		writeError(w, r, http.StatusServiceUnavailable, 0, errHistoryDisabled)
		return
	}
	key, err := keyParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, 0, err)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, r, http.StatusBadRequest, 0, fmt.Errorf("invalid limit %q", raw))
			return
		}
	}
	rows, err := query(r.Context(), key.String(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, 0, err)
		return
	}
	out := make([]EscrowEventView, 0, len(rows))
	for _, row := range rows {
		out = append(out, EscrowEventView{
			Sequence:     row.Sequence,
			Escrow:       row.Escrow,
			Type:         row.Type,
			Initiator:    row.Initiator,
			Counterparty: row.Counterparty,
			TermsHash:    row.TermsHash,
			Direction:    row.Direction,
			Reserve:      row.Reserve,
			LegsA:        row.LegsA,
			LegsB:        row.LegsB,
			RecordedAt:   row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, 0, err)
		return
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(req.Data), "0x"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, 0, fmt.Errorf("invalid hex: %w", err))
		return
	}
	cmd, err := escrow.DecodeInstruction(raw)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, escrow.ErrorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, escrow.DescribeCommand(cmd))
}
