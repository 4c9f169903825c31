package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/dto"
	"github.com/homeopshq/homeops-api/internal/service"
)

// MfaHandler serves TOTP enrollment, verification and backup codes
type MfaHandler struct {
	mfa    service.MfaService
	logger *zap.Logger
}

// NewMfaHandler creates the MFA handler
func NewMfaHandler(mfa service.MfaService, logger *zap.Logger) *MfaHandler {
	return &MfaHandler{mfa: mfa, logger: logger}
}

// Setup handles POST /mfa/setup, starting a pending enrollment
func (h *MfaHandler) Setup(c *gin.Context) {
	claims := ClaimsFrom(c)

	info, err := h.mfa.BeginEnrollment(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.MfaSetupResponse{
		OtpauthURL:    info.OtpauthURL,
		QRCodeDataURL: info.QRCodeDataURL,
		ManualCode:    info.ManualCode,
	})
}

// Confirm handles POST /mfa/confirm. A live code proves possession; the
// backup codes in the response are shown exactly once.
func (h *MfaHandler) Confirm(c *gin.Context) {
	var req dto.MfaConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	claims := ClaimsFrom(c)
	codes, err := h.mfa.CompleteEnrollment(c.Request.Context(), claims.UserID, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.BackupCodesResponse{BackupCodes: codes})
}

// Disable handles POST /mfa/disable with either a code or the password
func (h *MfaHandler) Disable(c *gin.Context) {
	var req dto.MfaDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	if req.CodeOrBackupCode == "" && req.Password == "" {
		respondError(c, h.logger, apperr.New(apperr.KindInputInvalid, "a code or the password is required"))
		return
	}

	claims := ClaimsFrom(c)
	if err := h.mfa.Disable(c.Request.Context(), claims.UserID, req.CodeOrBackupCode, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// Verify handles POST /auth/mfa/verify. The MFA ticket travels in the
// Authorization header and the second factor in the body; success exchanges
// the ticket for a full token pair.
func (h *MfaHandler) Verify(c *gin.Context) {
	var req dto.MfaVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	ticket := bearerToken(c)
	if ticket == "" {
		respondError(c, h.logger, apperr.New(apperr.KindUnauthorized, "mfa ticket required"))
		return
	}

	pair, err := h.mfa.VerifyTicket(c.Request.Context(), ticket, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTokenPairResponse(pair))
}

// Regenerate handles POST /mfa/backup-codes/regenerate; replaces all backup
// codes after a live TOTP proof
func (h *MfaHandler) Regenerate(c *gin.Context) {
	var req dto.MfaRegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	claims := ClaimsFrom(c)
	codes, err := h.mfa.RegenerateBackupCodes(c.Request.Context(), claims.UserID, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.BackupCodesResponse{BackupCodes: codes})
}

// Status handles GET /mfa/status
func (h *MfaHandler) Status(c *gin.Context) {
	claims := ClaimsFrom(c)

	status, err := h.mfa.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.MfaStatusResponse{
		MfaEnabled:           status.Enabled,
		BackupCodesRemaining: status.BackupCodesRemaining,
	})
}
