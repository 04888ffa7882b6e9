package handlers

import (
	"net/http"

	"github.com/aretechltd/mospay/internal/interfaces/rest"
)

// TokenResponse is the body of a successful credential exchange.
type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	Client      TokenClient `json:"client"`
}

type TokenClient struct {
	AppID    string   `json:"app_id"`
	Name     string   `json:"name"`
	Services []string `json:"services"`
}

// IssueToken exchanges Basic credentials plus the X-App-ID header for a
// bearer token scoped to the client's granted services.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	username, password, _ := r.BasicAuth()
	appID := r.Header.Get("X-App-ID")

	grant, err := h.identity.IssueToken(r.Context(), username, password, appID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: grant.AccessToken,
		TokenType:   grant.TokenType,
		ExpiresIn:   grant.ExpiresIn,
		Client: TokenClient{
			AppID:    grant.Client.AppID,
			Name:     grant.Client.CompanyName,
			Services: grant.Services,
		},
	})
}
