// Package signup is the three-step account signup wizard: personal
// information, address, then a review step that submits the record.
package signup

import (
	_ "embed"
	"fmt"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
	"github.com/gabrielmiguelok/stepform/pkg/wizard"
)

//go:embed signup.yaml
var defaultDefinition []byte

// DefaultDefinition returns the built-in signup wizard.
func DefaultDefinition() *wizard.Definition {
	def, err := wizard.ParseDefinition(defaultDefinition)
	if err != nil {
		panic(fmt.Sprintf("signup: embedded definition: %v", err))
	}
	return def
}

// LoadDefinition reads path, or returns the built-in wizard when path is
// empty.
func LoadDefinition(path string) (*wizard.Definition, error) {
	if path == "" {
		return DefaultDefinition(), nil
	}
	return wizard.LoadDefinition(path)
}

// Applicant is the typed form of a submitted signup record.
type Applicant struct {
	FirstName string `form:"firstName" yaml:"firstName"`
	LastName  string `form:"lastName" yaml:"lastName"`
	Email     string `form:"email" yaml:"email"`
	Country   string `form:"country" yaml:"country"`
	State     string `form:"state" yaml:"state"`
	City      string `form:"city" yaml:"city"`
	Street    string `form:"street" yaml:"street"`
	Zip       string `form:"zip" yaml:"zip"`
}

// DecodeApplicant binds a record to an Applicant.
func DecodeApplicant(record forms.Record) (Applicant, error) {
	var a Applicant
	if err := forms.Decode(record, &a); err != nil {
		return Applicant{}, err
	}
	return a, nil
}

// FullName joins first and last name.
func (a Applicant) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
