package animal_test

import (
	"fmt"
	"testing"

	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

type AnimalTestSuite struct {
	testutils.WebTestSuite
}

func TestAnimalTestSuite(t *testing.T) {
	suite.Run(t, new(AnimalTestSuite))
}

func (s *AnimalTestSuite) balance(u *user.User, token string) money.Money {
	resp := s.Do(fiber.MethodGet, "/api/users/"+u.ID.String(), "", token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	return testutils.Decode[testutils.Response[user.User]](s.T(), resp).Data.Balance
}

func (s *AnimalTestSuite) TestBuyAndSell() {
	alice, token := s.SeedUser("alice", "600")
	f := s.SeedFarm(alice, "Meadow")

	resp := s.Do(fiber.MethodPost, "/api/animals/buy", fmt.Sprintf(`{"farmId":%q,"species":"Cow"}`, f.ID), token)
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	cow := testutils.Decode[testutils.Response[animal.Animal]](s.T(), resp)
	s.Equal(animal.Cow, cow.Data.Species)
	s.Equal(cow.Data.LifeSpanInDays, cow.Data.RemainingLifeDays)
	s.Equal(money.MustParse("100"), s.balance(alice, token))

	resp = s.Do(fiber.MethodPost, "/api/animals/"+cow.Data.ID.String()+"/sell", "", token)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	sold := testutils.Decode[testutils.Response[struct {
		Price money.Money `json:"price"`
	}]](s.T(), resp)
	s.Equal(money.MustParse("350"), sold.Data.Price)
	s.Equal(money.MustParse("450"), s.balance(alice, token))

	resp = s.Do(fiber.MethodPost, "/api/animals/"+cow.Data.ID.String()+"/sell", "", token)
	s.Equal(fiber.StatusNotFound, resp.StatusCode)
}

func (s *AnimalTestSuite) TestBuy_InsufficientBalance() {
	alice, token := s.SeedUser("alice", "499.99")
	f := s.SeedFarm(alice, "Meadow")

	resp := s.Do(fiber.MethodPost, "/api/animals/buy", fmt.Sprintf(`{"farmId":%q,"species":"Cow"}`, f.ID), token)
	s.Equal(fiber.StatusUnprocessableEntity, resp.StatusCode)
	s.Equal(money.MustParse("499.99"), s.balance(alice, token))
}

func (s *AnimalTestSuite) TestBuy_UnknownSpecies() {
	alice, token := s.SeedUser("alice", "1000")
	f := s.SeedFarm(alice, "Meadow")

	resp := s.Do(fiber.MethodPost, "/api/animals/buy", fmt.Sprintf(`{"farmId":%q,"species":"Dragon"}`, f.ID), token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	pd := testutils.Decode[testutils.ProblemDetails](s.T(), resp)
	s.Equal("Unknown species", pd.Title)
}

func (s *AnimalTestSuite) TestBuy_ForeignFarm() {
	alice, _ := s.SeedUser("alice", "0")
	_, bobTk := s.SeedUser("bob", "1000")
	f := s.SeedFarm(alice, "Not Bob's")

	resp := s.Do(fiber.MethodPost, "/api/animals/buy", fmt.Sprintf(`{"farmId":%q,"species":"Sheep"}`, f.ID), bobTk)
	s.Equal(fiber.StatusForbidden, resp.StatusCode)
}

func (s *AnimalTestSuite) TestBuy_MissingFarm() {
	_, token := s.SeedUser("alice", "1000")
	resp := s.Do(fiber.MethodPost, "/api/animals/buy", `{"species":"Sheep"}`, token)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	pd := testutils.Decode[testutils.ProblemDetails](s.T(), resp)
	s.Equal("required", pd.Errors["FarmID"])
}
