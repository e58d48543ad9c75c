package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/tokentracker/src/security/validation"
	"github.com/username/tokentracker/src/utils"
)

type amountInputRequest struct {
	Text    string `json:"text"`
	Current string `json:"current"`
}

type amountInputResponse struct {
	Value    string `json:"value"`
	Accepted bool   `json:"accepted"`
}

// HandleAmountInput applies one keystroke to a numeric field. Rejected text
// leaves the field at its current value.
func HandleAmountInput(w http.ResponseWriter, r *http.Request) {
	var req amountInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	field := validation.NewAmountField(req.Current)
	accepted := field.Input(req.Text)
	utils.SendJSON(w, amountInputResponse{Value: field.Value(), Accepted: accepted}, http.StatusOK)
}
