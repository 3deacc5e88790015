// internal/httpapi/chat_handlers.go
package httpapi

import (
	"encoding/json"
	"net/http"

	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/qualification"
)

type ChatHandler struct {
	Service LeadService
	Logger  logger.Logger
}

type chatRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response     string `json:"response"`
	RelevanceTag string `json:"relevanceTag"`
}

// chatFailure keeps the chat widget usable on a 500: it still gets a reply
// to show, alongside the error envelope.
type chatFailure struct {
	Response string `json:"response"`
	APIError
}

const maxChatBody = 64 << 10

func (h ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "Missing required fields")
		return
	}

	result, err := h.Service.HandleMessage(r.Context(), req.Email, req.Message)
	if err != nil {
		status, body := errorResponse(r, err)
		logServiceError(r, h.Logger, status, err)
		if status == http.StatusInternalServerError {
			WriteJSON(w, status, chatFailure{Response: qualification.ReplyProcessingFailure, APIError: body})
			return
		}
		WriteJSON(w, status, body)
		return
	}

	WriteJSON(w, http.StatusOK, chatResponse{
		Response:     result.Response,
		RelevanceTag: string(result.RelevanceTag),
	})
}
