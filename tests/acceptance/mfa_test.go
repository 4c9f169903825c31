package acceptance

import (
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/homeopshq/homeops-api/internal/dto"
)

// enrollMfa walks a registered user through setup and confirm, returning the
// shared secret and the one-time backup codes
func (s *Suite) enrollMfa(accessToken string) (secret string, backupCodes []string) {
	setup := s.doJSON("POST", "/api/v1/mfa/setup", accessToken, nil)
	s.Require().Equal(http.StatusOK, setup.StatusCode)

	var setupResp dto.MfaSetupResponse
	s.decode(setup, &setupResp)
	s.Require().NotEmpty(setupResp.ManualCode)
	s.Require().Contains(setupResp.OtpauthURL, "otpauth://")

	code, err := totp.GenerateCode(setupResp.ManualCode, time.Now())
	s.Require().NoError(err)

	confirm := s.doJSON("POST", "/api/v1/mfa/confirm", accessToken, dto.MfaConfirmRequest{Code: code})
	s.Require().Equal(http.StatusOK, confirm.StatusCode)

	var codesResp dto.BackupCodesResponse
	s.decode(confirm, &codesResp)
	s.Require().Len(codesResp.BackupCodes, 8)

	return setupResp.ManualCode, codesResp.BackupCodes
}

// loginForTicket runs the password step for an MFA-enabled user and returns
// the ticket
func (s *Suite) loginForTicket(email string) string {
	resp := s.doJSON("POST", "/api/v1/auth/token", "", dto.LoginRequest{
		Email:    email,
		Password: testPassword,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var ticketResp dto.MfaTicketResponse
	s.decode(resp, &ticketResp)
	s.Require().NotEmpty(ticketResp.MfaTicket, "login should return a ticket, not tokens")
	return ticketResp.MfaTicket
}

func (s *Suite) TestMfa_EnrollAndLogin() {
	auth := s.register("Ada", "ada@x.io")
	secret, _ := s.enrollMfa(auth.Tokens.AccessToken)

	ticket := s.loginForTicket("ada@x.io")

	code, err := totp.GenerateCode(secret, time.Now())
	s.Require().NoError(err)

	verify := s.doJSON("POST", "/api/v1/auth/mfa/verify", ticket, dto.MfaVerifyRequest{Code: code})
	s.Equal(http.StatusOK, verify.StatusCode)

	var pair dto.TokenPairResponse
	s.decode(verify, &pair)
	s.NotEmpty(pair.AccessToken)
	s.NotEmpty(pair.RefreshToken)
}

func (s *Suite) TestMfa_TicketIsNotAnAccessToken() {
	auth := s.register("Ada", "ada@x.io")
	s.enrollMfa(auth.Tokens.AccessToken)

	ticket := s.loginForTicket("ada@x.io")

	resp := s.doJSON("GET", "/api/v1/users/me", ticket, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestMfa_BackupCodeIsOneShot() {
	auth := s.register("Ada", "ada@x.io")
	_, backupCodes := s.enrollMfa(auth.Tokens.AccessToken)
	backupCode := backupCodes[0]

	ticket := s.loginForTicket("ada@x.io")
	verify := s.doJSON("POST", "/api/v1/auth/mfa/verify", ticket, dto.MfaVerifyRequest{Code: backupCode})
	defer verify.Body.Close()
	s.Equal(http.StatusOK, verify.StatusCode)

	// the same code on a fresh ticket must be rejected
	ticket = s.loginForTicket("ada@x.io")
	replay := s.doJSON("POST", "/api/v1/auth/mfa/verify", ticket, dto.MfaVerifyRequest{Code: backupCode})
	s.Equal(http.StatusUnauthorized, replay.StatusCode)

	env := s.decodeError(replay)
	s.Equal("INVALID_CODE", env.Error.Code)
}

func (s *Suite) TestMfa_ThreeWrongCodesKillTheTicket() {
	auth := s.register("Ada", "ada@x.io")
	secret, _ := s.enrollMfa(auth.Tokens.AccessToken)

	ticket := s.loginForTicket("ada@x.io")

	for i := 0; i < 2; i++ {
		resp := s.doJSON("POST", "/api/v1/auth/mfa/verify", ticket, dto.MfaVerifyRequest{Code: "000000"})
		resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	}

	third := s.doJSON("POST", "/api/v1/auth/mfa/verify", ticket, dto.MfaVerifyRequest{Code: "000000"})
	third.Body.Close()
	s.Equal(http.StatusUnauthorized, third.StatusCode)

	// even the right code no longer helps on this ticket
	code, err := totp.GenerateCode(secret, time.Now())
	s.Require().NoError(err)
	after := s.doJSON("POST", "/api/v1/auth/mfa/verify", ticket, dto.MfaVerifyRequest{Code: code})
	defer after.Body.Close()
	s.Equal(http.StatusUnauthorized, after.StatusCode)
}

func (s *Suite) TestMfa_StatusAndDisable() {
	auth := s.register("Ada", "ada@x.io")
	secret, _ := s.enrollMfa(auth.Tokens.AccessToken)

	status := s.doJSON("GET", "/api/v1/mfa/status", auth.Tokens.AccessToken, nil)
	s.Equal(http.StatusOK, status.StatusCode)

	var statusResp dto.MfaStatusResponse
	s.decode(status, &statusResp)
	s.True(statusResp.MfaEnabled)
	s.Equal(8, statusResp.BackupCodesRemaining)

	code, err := totp.GenerateCode(secret, time.Now())
	s.Require().NoError(err)

	disable := s.doJSON("POST", "/api/v1/mfa/disable", auth.Tokens.AccessToken, dto.MfaDisableRequest{
		CodeOrBackupCode: code,
	})
	s.Equal(http.StatusOK, disable.StatusCode)

	var success dto.SuccessResponse
	s.decode(disable, &success)
	s.True(success.Success)

	// the next login goes straight to tokens again
	login := s.doJSON("POST", "/api/v1/auth/token", "", dto.LoginRequest{
		Email:    "ada@x.io",
		Password: testPassword,
	})
	s.Equal(http.StatusOK, login.StatusCode)

	var full dto.AuthResponse
	s.decode(login, &full)
	s.NotEmpty(full.Tokens.AccessToken)
}

func (s *Suite) TestMfa_SetupRequiresAuthentication() {
	resp := s.doJSON("POST", "/api/v1/mfa/setup", "", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
