package acceptance

import (
	"io"
	"net/http"

	"github.com/homeopshq/homeops-api/internal/dto"
)

const propertyUID = "01HZZZZZZZZZZZZZZZZZZZZZZA"

func (s *Suite) seedPropertyWithSystems(ownerID int64) {
	s.seedProperty(77, propertyUID, s.accountIDOf(ownerID), ownerID)

	_, err := s.Postgres.DB.Exec(`
		INSERT INTO property_systems (property_id, kind, name) VALUES
		    (77, 'hvac', 'Trane XR14'),
		    (77, 'water_heater', 'Rheem Performance 50')`)
	s.Require().NoError(err)
}

func (s *Suite) TestProperty_UidAndIntegerIdResolveToSameEntity() {
	ada := s.register("Ada", "ada@x.io")
	s.seedPropertyWithSystems(ada.User.ID)

	byID := s.doJSON("GET", "/api/v1/properties/77", ada.Tokens.AccessToken, nil)
	s.Equal(http.StatusOK, byID.StatusCode)
	var a dto.PropertyResponse
	s.decode(byID, &a)

	byUID := s.doJSON("GET", "/api/v1/properties/"+propertyUID, ada.Tokens.AccessToken, nil)
	s.Equal(http.StatusOK, byUID.StatusCode)
	var b dto.PropertyResponse
	s.decode(byUID, &b)

	s.Equal(a, b)
	s.Equal(propertyUID, a.PropertyUID)
	s.Equal("12 Oak Lane", a.Address)
}

// A non-member must get the same 403 whether the property exists or not, and
// whichever identifier form they use
func (s *Suite) TestProperty_GuardNeverLeaksExistence() {
	ada := s.register("Ada", "ada@x.io")
	s.seedPropertyWithSystems(ada.User.ID)
	mallory := s.register("Mallory", "mallory@x.io")

	read := func(path string) (int, string) {
		resp := s.doJSON("GET", path, mallory.Tokens.AccessToken, nil)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		s.Require().NoError(err)
		return resp.StatusCode, string(body)
	}

	statusByID, bodyByID := read("/api/v1/properties/77")
	statusByUID, bodyByUID := read("/api/v1/properties/" + propertyUID)
	statusMissing, bodyMissing := read("/api/v1/properties/01HZZZZZZZZZZZZZZZZZZZZZZZ")
	statusNoRow, bodyNoRow := read("/api/v1/properties/999")

	s.Equal(http.StatusForbidden, statusByID)
	s.Equal(http.StatusForbidden, statusByUID)
	s.Equal(http.StatusForbidden, statusMissing)
	s.Equal(http.StatusForbidden, statusNoRow)

	s.Equal(bodyByID, bodyByUID)
	s.Equal(bodyByID, bodyMissing)
	s.Equal(bodyByID, bodyNoRow)
}

func (s *Suite) TestProperty_PlatformAdminBypassesMembership() {
	ada := s.register("Ada", "ada@x.io")
	s.seedPropertyWithSystems(ada.User.ID)

	s.register("Root", "root@x.io")
	admin := s.promote("root@x.io", "admin")

	type systemsBody struct {
		Systems []struct {
			Kind string `json:"kind"`
			Name string `json:"name"`
		} `json:"systems"`
	}

	byID := s.doJSON("GET", "/api/v1/properties/77/systems", admin.Tokens.AccessToken, nil)
	s.Equal(http.StatusOK, byID.StatusCode)
	var a systemsBody
	s.decode(byID, &a)

	byUID := s.doJSON("GET", "/api/v1/properties/"+propertyUID+"/systems", admin.Tokens.AccessToken, nil)
	s.Equal(http.StatusOK, byUID.StatusCode)
	var b systemsBody
	s.decode(byUID, &b)

	s.Equal(a, b)
	s.Len(a.Systems, 2)
}

func (s *Suite) TestProperty_AnonymousGetsUnauthorized() {
	resp := s.doJSON("GET", "/api/v1/properties/77", "", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
