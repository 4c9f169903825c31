package acceptance

import (
	"net/http"

	"github.com/homeopshq/homeops-api/internal/dto"
)

func (s *Suite) TestRegister_Success() {
	auth := s.register("Ada", "ada@x.io")

	s.NotEmpty(auth.Tokens.AccessToken)
	s.NotEmpty(auth.Tokens.RefreshToken)
	s.NotZero(auth.Tokens.ExpiresIn)
	s.Equal("ada@x.io", auth.User.Email)
	s.Equal("Ada", auth.User.DisplayName)
	s.Equal("homeowner", auth.User.Role)
	s.True(auth.User.IsActive)
	s.NotZero(auth.User.ID)
}

func (s *Suite) TestRegister_CreatesTenantScaffold() {
	auth := s.register("Ada", "ada@x.io")

	var accountCount, memberships, contacts, subs int
	row := s.Postgres.DB.QueryRow(`SELECT count(*) FROM accounts WHERE owner_user_id = $1`, auth.User.ID)
	s.Require().NoError(row.Scan(&accountCount))
	row = s.Postgres.DB.QueryRow(`SELECT count(*) FROM account_members WHERE user_id = $1 AND role = 'owner'`, auth.User.ID)
	s.Require().NoError(row.Scan(&memberships))
	row = s.Postgres.DB.QueryRow(`SELECT count(*) FROM contacts WHERE user_id = $1`, auth.User.ID)
	s.Require().NoError(row.Scan(&contacts))
	row = s.Postgres.DB.QueryRow(`
		SELECT count(*) FROM account_subscriptions sub
		JOIN accounts a ON a.id = sub.account_id
		WHERE a.owner_user_id = $1 AND sub.status = 'active'`, auth.User.ID)
	s.Require().NoError(row.Scan(&subs))

	s.Equal(1, accountCount)
	s.Equal(1, memberships)
	s.Equal(1, contacts)
	s.Equal(1, subs, "default basic subscription should be attached")
}

func (s *Suite) TestRegister_RefreshTokenNeverStoredRaw() {
	auth := s.register("Ada", "ada@x.io")

	var count int
	row := s.Postgres.DB.QueryRow(`SELECT count(*) FROM refresh_tokens WHERE token_hash = $1`, auth.Tokens.RefreshToken)
	s.Require().NoError(row.Scan(&count))
	s.Zero(count, "raw refresh token must not appear in storage")

	row = s.Postgres.DB.QueryRow(`SELECT count(*) FROM refresh_tokens WHERE user_id = $1`, auth.User.ID)
	s.Require().NoError(row.Scan(&count))
	s.Equal(1, count, "only the hash is persisted")
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("Ada", "ada@x.io")

	resp := s.doJSON("POST", "/api/v1/auth/register", "", dto.RegisterRequest{
		Name:     "Ada Again",
		Email:    "ADA@x.io",
		Password: testPassword,
	})
	s.Equal(http.StatusConflict, resp.StatusCode)

	env := s.decodeError(resp)
	s.Equal("CONFLICT", env.Error.Code)
}

func (s *Suite) TestRegister_WeakPassword() {
	resp := s.doJSON("POST", "/api/v1/auth/register", "", dto.RegisterRequest{
		Name:     "Ada",
		Email:    "ada@x.io",
		Password: "hunter22",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_Success() {
	s.register("Ada", "ada@x.io")

	resp := s.doJSON("POST", "/api/v1/auth/token", "", dto.LoginRequest{
		Email:    "ada@x.io",
		Password: testPassword,
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	var auth dto.AuthResponse
	s.decode(resp, &auth)
	s.NotEmpty(auth.Tokens.AccessToken)
	s.NotEmpty(auth.Tokens.RefreshToken)
	s.Equal("ada@x.io", auth.User.Email)
}

// Wrong email and wrong password must be indistinguishable on the wire
func (s *Suite) TestLogin_CredentialFailuresIdentical() {
	s.register("Ada", "ada@x.io")

	wrongEmail := s.doJSON("POST", "/api/v1/auth/token", "", dto.LoginRequest{
		Email:    "nobody@x.io",
		Password: testPassword,
	})
	wrongPassword := s.doJSON("POST", "/api/v1/auth/token", "", dto.LoginRequest{
		Email:    "ada@x.io",
		Password: "WrongPassword1",
	})

	s.Equal(http.StatusUnauthorized, wrongEmail.StatusCode)
	s.Equal(http.StatusUnauthorized, wrongPassword.StatusCode)

	envA := s.decodeError(wrongEmail)
	envB := s.decodeError(wrongPassword)
	s.Equal(envA.Error.Message, envB.Error.Message)
	s.Equal(envA.Error.Code, envB.Error.Code)
}

func (s *Suite) TestRefresh_Success() {
	auth := s.register("Ada", "ada@x.io")

	resp := s.doJSON("POST", "/api/v1/auth/refresh", "", dto.RefreshRequest{
		RefreshToken: auth.Tokens.RefreshToken,
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	var refreshed dto.AccessTokenResponse
	s.decode(resp, &refreshed)
	s.NotEmpty(refreshed.AccessToken)
	s.NotZero(refreshed.ExpiresIn)
}

func (s *Suite) TestRefresh_UnknownToken() {
	resp := s.doJSON("POST", "/api/v1/auth/refresh", "", dto.RefreshRequest{
		RefreshToken: "not-a-real-token",
	})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	env := s.decodeError(resp)
	s.Equal("INVALID_REFRESH", env.Error.Code)
}

func (s *Suite) TestLogout_RevokesRefreshToken() {
	auth := s.register("Ada", "ada@x.io")

	resp := s.doJSON("POST", "/api/v1/auth/logout", auth.Tokens.AccessToken, dto.LogoutRequest{
		RefreshToken: auth.Tokens.RefreshToken,
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	var ok dto.OkResponse
	s.decode(resp, &ok)
	s.True(ok.OK)

	// the refresh token died with the session
	refresh := s.doJSON("POST", "/api/v1/auth/refresh", "", dto.RefreshRequest{
		RefreshToken: auth.Tokens.RefreshToken,
	})
	defer refresh.Body.Close()
	s.Equal(http.StatusUnauthorized, refresh.StatusCode)
}

func (s *Suite) TestLogout_BlacklistsAccessToken() {
	auth := s.register("Ada", "ada@x.io")

	resp := s.doJSON("POST", "/api/v1/auth/logout", auth.Tokens.AccessToken, dto.LogoutRequest{
		RefreshToken: auth.Tokens.RefreshToken,
	})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	me := s.doJSON("GET", "/api/v1/users/me", auth.Tokens.AccessToken, nil)
	defer me.Body.Close()
	s.Equal(http.StatusUnauthorized, me.StatusCode, "revoked access token must stop working")
}

func (s *Suite) TestLogout_RequiresAuthentication() {
	resp := s.doJSON("POST", "/api/v1/auth/logout", "", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestMe_Success() {
	auth := s.register("Ada", "ada@x.io")

	resp := s.doJSON("GET", "/api/v1/users/me", auth.Tokens.AccessToken, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var user dto.UserResponse
	s.decode(resp, &user)
	s.Equal(auth.User.ID, user.ID)
	s.Equal("ada@x.io", user.Email)
	s.NotNil(user.ContactID)
}

func (s *Suite) TestMe_InvalidTokenIsUnauthorized() {
	resp := s.doJSON("GET", "/api/v1/users/me", "garbage-token", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
