// Package handler provides the HTTP handlers of the marketplace API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/taskfi/marketplace/internal/repository"
	"github.com/taskfi/marketplace/internal/wallet"
	"github.com/taskfi/marketplace/pkg/keyfetcher"
)

// WalletUserRepository resolves users by wallet address.
type WalletUserRepository interface {
	GetUserIDByWallet(ctx context.Context, walletAddress string) (uuid.UUID, error)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	KeyFetcher keyfetcher.PrivateKeyFetcher
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
}

// AuthHandler issues session tokens for wallet-signature sign-ins.
type AuthHandler struct {
	users  WalletUserRepository
	config *AuthConfig
	logger *slog.Logger
}

// SignInRequest carries the wallet's proof of control: the sign-in message
// and its ed25519 signature, base58-encoded.
type SignInRequest struct {
	WalletAddress string `json:"walletAddress"`
	Message       string `json:"message"`
	Signature     string `json:"signature"`
}

// SignInResponse represents the signin response payload
type SignInResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(users WalletUserRepository, config *AuthConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		config: config,
		logger: logger,
	}
}

// SignIn handles POST /auth/signin. The wallet proves control of its key by
// signing the sign-in message; a valid proof for a known wallet yields a JWT.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid_signin_request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request format")
		return
	}

	if req.WalletAddress == "" || req.Message == "" || req.Signature == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_request", "Wallet address, message and signature are required")
		return
	}

	signature, err := base58.Decode(req.Signature)
	if err != nil {
		h.logger.Warn("signin_signature_decode_failed", "wallet", req.WalletAddress, "error", err)
		WriteErrorResponse(w, http.StatusUnauthorized, "authentication_failed", "Authentication failed")
		return
	}

	if err := wallet.VerifySignature(req.WalletAddress, []byte(req.Message), signature); err != nil {
		h.logger.Warn("signin_signature_invalid", "wallet", req.WalletAddress, "error", err)
		WriteErrorResponse(w, http.StatusUnauthorized, "authentication_failed", "Authentication failed")
		return
	}

	userID, err := h.users.GetUserIDByWallet(r.Context(), req.WalletAddress)
	if err != nil {
		var notFoundErr *repository.NotFoundError
		if errors.As(err, &notFoundErr) {
			h.logger.Warn("signin_unknown_wallet", "wallet", req.WalletAddress)
		} else {
			h.logger.Error("signin_user_lookup_failed", "wallet", req.WalletAddress, "error", err)
		}
		WriteErrorResponse(w, http.StatusUnauthorized, "authentication_failed", "Authentication failed")
		return
	}

	token, err := h.generateJWT(userID)
	if err != nil {
		h.logger.Error("signin_token_generation_failed", "user_id", userID, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "authentication_failed", "Authentication failed")
		return
	}

	h.logger.Info("user_signed_in", "user_id", userID, "wallet", req.WalletAddress)

	WriteJSONResponse(w, http.StatusOK, SignInResponse{
		Token:     token,
		TokenType: "Bearer",
	})
}

// generateJWT creates a JWT token for the authenticated user
func (h *AuthHandler) generateJWT(userID uuid.UUID) (string, error) {
	privateKey, err := h.config.KeyFetcher.FetchPrivateKey()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    h.config.Issuer,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{h.config.Audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(h.config.TokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(privateKey)
}
