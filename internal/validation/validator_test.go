package validation

import (
	"math"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/suite"
)

type moneyInput struct {
	Amount float64 `json:"amount" validate:"money"`
}

type limitInput struct {
	Limit string `json:"limit" validate:"money_string"`
}

type coordinateInput struct {
	Lat float64 `json:"lat" validate:"latitude_deg"`
	Lng float64 `json:"lng" validate:"longitude_deg"`
}

type geofenceInput struct {
	Kind string `json:"kind" validate:"geofence_kind"`
}

type categoryInput struct {
	Category string `json:"category" validate:"category"`
}

type ValidatorTestSuite struct {
	suite.Suite
	v *Validator
}

func TestValidatorTestSuite(t *testing.T) {
	suite.Run(t, new(ValidatorTestSuite))
}

func (s *ValidatorTestSuite) SetupTest() {
	s.v = NewValidator()
}

func (s *ValidatorTestSuite) TestMoney() {
	valid := []float64{0.01, 10, 249.99, 1000000}
	for _, amount := range valid {
		s.NoError(s.v.Validate(moneyInput{Amount: amount}), "amount %v", amount)
	}

	invalid := []float64{0, -1, 10.001, math.NaN(), math.Inf(1)}
	for _, amount := range invalid {
		s.Error(s.v.Validate(moneyInput{Amount: amount}), "amount %v", amount)
	}
}

func (s *ValidatorTestSuite) TestMoneyString() {
	s.NoError(s.v.Validate(limitInput{Limit: "200.00"}))
	s.Error(s.v.Validate(limitInput{Limit: "0"}))
	s.Error(s.v.Validate(limitInput{Limit: "abc"}))
}

func (s *ValidatorTestSuite) TestCoordinates() {
	s.NoError(s.v.Validate(coordinateInput{Lat: 40.7, Lng: -74}))
	s.Error(s.v.Validate(coordinateInput{Lat: 91, Lng: 0}))
	s.Error(s.v.Validate(coordinateInput{Lat: 0, Lng: 181}))
}

func (s *ValidatorTestSuite) TestGeofenceKind() {
	for _, kind := range []string{"merchant", "high_risk", "safe_zone"} {
		s.NoError(s.v.Validate(geofenceInput{Kind: kind}))
	}
	s.Error(s.v.Validate(geofenceInput{Kind: "casino"}))
}

func (s *ValidatorTestSuite) TestCategory() {
	s.NoError(s.v.Validate(categoryInput{Category: ""}))
	s.NoError(s.v.Validate(categoryInput{Category: "dining"}))
	s.Error(s.v.Validate(categoryInput{Category: "coffee"}))
}

func (s *ValidatorTestSuite) TestFieldNamesUseJSONTags() {
	err := s.v.Validate(moneyInput{Amount: -1})
	s.Require().Error(err)

	validationErrs, ok := err.(validator.ValidationErrors)
	s.Require().True(ok)
	s.Equal("amount", validationErrs[0].Field())
}

func (s *ValidatorTestSuite) TestGetValidatorIsShared() {
	s.Same(GetValidator(), GetValidator())
}
