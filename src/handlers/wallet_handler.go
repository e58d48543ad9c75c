package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/security/validation"
	"github.com/username/tokentracker/src/services"
	"github.com/username/tokentracker/src/utils"
)

type WalletHandler struct {
	wallets *services.WalletService
	tx      *services.TransactionService
}

func NewWalletHandler(wallets *services.WalletService, tx *services.TransactionService) *WalletHandler {
	return &WalletHandler{wallets: wallets, tx: tx}
}

// exclusive keeps a transaction from starting while fn changes the wallet.
func (h *WalletHandler) exclusive(userID int64, fn func() error) error {
	if h.tx == nil {
		return fn()
	}
	return h.tx.Exclusive(userID, fn)
}

func (h *WalletHandler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	wallet, err := h.wallets.Get(userID)
	if err != nil {
		if errors.Is(err, services.ErrNoWallet) {
			utils.SendJSONError(w, "No wallet connected", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, "Failed to load wallet", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, wallet, http.StatusOK)
}

func (h *WalletHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var wallet models.WalletData
	if err := h.exclusive(userID, func() error {
		wallet = h.wallets.Connect(userID)
		return nil
	}); err != nil {
		_, msg := transactionErrorStatus(err)
		utils.SendJSONError(w, msg, http.StatusConflict)
		return
	}
	logger.FromContext(r.Context()).Info("Wallet connected", "address", validation.FormatAddress(wallet.Address))
	utils.SendJSON(w, wallet, http.StatusOK)
}

func (h *WalletHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var wallet models.WalletData
	err := h.exclusive(userID, func() error {
		var err error
		wallet, err = h.wallets.CreateAccount(userID, validation.StripUnprintable(body.Name))
		return err
	})
	if err != nil {
		if errors.Is(err, services.ErrOperationInProgress) {
			_, msg := transactionErrorStatus(err)
			utils.SendJSONError(w, msg, http.StatusConflict)
			return
		}
		if errors.Is(err, validation.ErrInvalidAccountName) {
			utils.SendJSONError(w, validation.UserMessage(err), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to create account", "error", err)
		utils.SendJSONError(w, "Failed to create account", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, wallet, http.StatusCreated)
}

func (h *WalletHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.exclusive(userID, func() error {
		h.wallets.Reset(userID)
		return nil
	}); err != nil {
		_, msg := transactionErrorStatus(err)
		utils.SendJSONError(w, msg, http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
