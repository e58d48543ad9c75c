package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/services"
	"github.com/username/tokentracker/src/utils"
)

const (
	wsWriteWait   = 10 * time.Second
	wsRequestWait = 30 * time.Second
)

type TransactionHandler struct {
	tx       *services.TransactionService
	upgrader websocket.Upgrader
}

// NewTransactionHandler only upgrades stream requests whose Origin is in
// allowedOrigins ("*" allows any). Requests without an Origin header come
// from native clients and are accepted.
func NewTransactionHandler(tx *services.TransactionService, allowedOrigins []string) *TransactionHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &TransactionHandler{
		tx: tx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// transactionErrorStatus maps flow errors to the HTTP status and the message
// shown to the user.
func transactionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrOperationInProgress):
		return http.StatusConflict, "Another transaction is already in progress"
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, "Please enter a valid amount"
	case errors.Is(err, services.ErrInvalidRecipient):
		return http.StatusBadRequest, "Please enter a valid Ethereum address."
	case errors.Is(err, services.ErrMissingCoin),
		errors.Is(err, services.ErrUnsupportedAction),
		errors.Is(err, services.ErrUnknownToken),
		errors.Is(err, services.ErrNoRate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrQuoteExceeded):
		return http.StatusConflict, "The price moved. Review the new quote and try again"
	case errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, services.ErrNoWallet):
		return http.StatusConflict, "Connect a wallet first"
	case errors.Is(err, services.ErrMarketUnavailable), errors.Is(err, services.ErrInvalidPayload):
		return http.StatusBadGateway, "Market data is temporarily unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "Transaction cancelled"
	default:
		return http.StatusInternalServerError, "Transaction failed"
	}
}

func (h *TransactionHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req models.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Action = models.TransactionAction(chi.URLParam(r, "action"))

	receipt, err := h.tx.Execute(r.Context(), userID, req, nil)
	if err != nil {
		status, msg := transactionErrorStatus(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("Transaction failed", "action", req.Action, "error", err)
		}
		utils.SendJSONError(w, msg, status)
		return
	}
	utils.SendJSON(w, receipt, http.StatusOK)
}

// StreamMessage is one frame of the progress stream.
type StreamMessage struct {
	Type     string                     `json:"type"` // progress, receipt or error
	Progress *models.ProgressUpdate     `json:"progress,omitempty"`
	Receipt  *models.TransactionReceipt `json:"receipt,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// HandleStream runs a transaction over a WebSocket. The client sends the
// request as its first message and receives each step as it happens, then
// the receipt or an error. Closing the socket cancels the flow.
func (h *TransactionHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	action := models.TransactionAction(chi.URLParam(r, "action"))
	log := logger.FromContext(r.Context()).With("action", action)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	write := func(msg StreamMessage) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg)
	}
	closeWith := func(code int, text string) {
		deadline := time.Now().Add(wsWriteWait)
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	}

	conn.SetReadDeadline(time.Now().Add(wsRequestWait))
	var req models.TransactionRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.Debug("Failed to read stream request", "error", err)
		write(StreamMessage{Type: "error", Error: "Invalid request body"})
		closeWith(websocket.CloseUnsupportedData, "invalid request")
		return
	}
	req.Action = action
	conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Any read error, including a close frame, ends the flow.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	receipt, err := h.tx.Execute(ctx, userID, req, func(p models.ProgressUpdate) {
		if werr := write(StreamMessage{Type: "progress", Progress: &p}); werr != nil {
			log.Debug("Failed to write progress", "error", werr)
			cancel()
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Info("Stream closed before the transaction finished")
			return
		}
		_, msg := transactionErrorStatus(err)
		write(StreamMessage{Type: "error", Error: msg})
		closeWith(websocket.CloseNormalClosure, "")
		return
	}
	if err := write(StreamMessage{Type: "receipt", Receipt: &receipt}); err != nil {
		log.Warn("Failed to write receipt", "id", receipt.ID, "error", err)
		return
	}
	closeWith(websocket.CloseNormalClosure, "")
}
