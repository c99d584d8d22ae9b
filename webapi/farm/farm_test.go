package farm_test

import (
	"testing"

	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

type FarmTestSuite struct {
	testutils.WebTestSuite
}

func TestFarmTestSuite(t *testing.T) {
	suite.Run(t, new(FarmTestSuite))
}

func (s *FarmTestSuite) TestCreateAndMine() {
	alice, token := s.SeedUser("alice", "0")

	resp := s.Do(fiber.MethodPost, "/api/farms", `{"name":"  Sunny Side  "}`, token)
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	created := testutils.Decode[testutils.Response[farm.Farm]](s.T(), resp)
	s.Equal("Sunny Side", created.Data.Name)
	s.Equal(alice.ID, created.Data.OwnerID)

	resp = s.Do(fiber.MethodGet, "/api/farms/mine", "", token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	mine := testutils.Decode[testutils.Response[[]farm.Farm]](s.T(), resp)
	s.Len(mine.Data, 1)
}

func (s *FarmTestSuite) TestCreate_Validation() {
	_, token := s.SeedUser("alice", "0")
	resp := s.Do(fiber.MethodPost, "/api/farms", `{"name":""}`, token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	resp = s.Do(fiber.MethodPost, "/api/farms", `{"name":`, token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *FarmTestSuite) TestList_AdminOnly() {
	alice, token := s.SeedUser("alice", "0")
	s.SeedFarm(alice, "One")
	s.SeedFarm(alice, "Two")

	resp := s.Do(fiber.MethodGet, "/api/farms", "", token)
	s.Equal(fiber.StatusForbidden, resp.StatusCode)

	resp = s.Do(fiber.MethodGet, "/api/farms", "", s.AdminTk)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	all := testutils.Decode[testutils.Response[[]farm.Farm]](s.T(), resp)
	s.Len(all.Data, 2)
}

func (s *FarmTestSuite) TestGet_OwnerOrAdmin() {
	alice, aliceTk := s.SeedUser("alice", "0")
	_, bobTk := s.SeedUser("bob", "0")
	f := s.SeedFarm(alice, "Orchard")
	path := "/api/farms/" + f.ID.String()

	resp := s.Do(fiber.MethodGet, path, "", aliceTk)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	details := testutils.Decode[testutils.Response[struct {
		Name     string           `json:"name"`
		Animals  []map[string]any `json:"animals"`
		Products []map[string]any `json:"products"`
	}]](s.T(), resp)
	s.Equal("Orchard", details.Data.Name)
	s.Empty(details.Data.Animals)

	s.Equal(fiber.StatusForbidden, s.Do(fiber.MethodGet, path, "", bobTk).StatusCode)
	s.Equal(fiber.StatusOK, s.Do(fiber.MethodGet, path, "", s.AdminTk).StatusCode)
	s.Equal(fiber.StatusForbidden, s.Do(fiber.MethodGet, path+"/products", "", bobTk).StatusCode)
	s.Equal(fiber.StatusForbidden, s.Do(fiber.MethodGet, path+"/animals", "", bobTk).StatusCode)
}

func (s *FarmTestSuite) TestGet_NotFound() {
	resp := s.Do(fiber.MethodGet, "/api/farms/5f0c8e3c-5a53-4a44-9d6f-9a8c3e7b2f11", "", s.AdminTk)
	s.Equal(fiber.StatusNotFound, resp.StatusCode)
}

func (s *FarmTestSuite) TestAnimals() {
	alice, token := s.SeedUser("alice", "100")
	f := s.SeedFarm(alice, "Coop")
	resp := s.Do(fiber.MethodPost, "/api/animals/buy", `{"farmId":"`+f.ID.String()+`","species":"Chicken"}`, token)
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	resp = s.Do(fiber.MethodGet, "/api/farms/"+f.ID.String()+"/animals", "", token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	animals := testutils.Decode[testutils.Response[[]animal.Animal]](s.T(), resp)
	s.Require().Len(animals.Data, 1)
	s.Equal(animal.Chicken, animals.Data[0].Species)
	s.True(animals.Data[0].IsAlive)
}

func (s *FarmTestSuite) TestTick_AdminOnly() {
	alice, token := s.SeedUser("alice", "0")
	f := s.SeedFarm(alice, "Quiet")
	path := "/api/farms/" + f.ID.String() + "/tick"

	s.Equal(fiber.StatusForbidden, s.Do(fiber.MethodPost, path, "", token).StatusCode)

	resp := s.Do(fiber.MethodPost, path, "", s.AdminTk)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	ticked := testutils.Decode[testutils.Response[struct {
		Created int `json:"created"`
	}]](s.T(), resp)
	s.Zero(ticked.Data.Created)
}

func (s *FarmTestSuite) TestDelete() {
	alice, aliceTk := s.SeedUser("alice", "0")
	_, bobTk := s.SeedUser("bob", "0")
	f := s.SeedFarm(alice, "Temporary")
	path := "/api/farms/" + f.ID.String()

	s.Equal(fiber.StatusForbidden, s.Do(fiber.MethodDelete, path, "", bobTk).StatusCode)
	s.Equal(fiber.StatusNoContent, s.Do(fiber.MethodDelete, path, "", aliceTk).StatusCode)
	s.Equal(fiber.StatusNotFound, s.Do(fiber.MethodGet, path, "", aliceTk).StatusCode)
}
