// Package model defines the data types that flow through a single report run.
package model

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Credentials identify the API application and the user it acts for.
// They are supplied once at startup and never mutated.
type Credentials struct {
	Application  string
	Vendor       string
	BusinessUnit string
	Username     string
	Password     string
}

// Validate reports the first blank field.
func (c Credentials) Validate() error {
	switch {
	case strings.TrimSpace(c.Application) == "":
		return errors.New("application is required")
	case strings.TrimSpace(c.Vendor) == "":
		return errors.New("vendor is required")
	case strings.TrimSpace(c.BusinessUnit) == "":
		return errors.New("business unit is required")
	case strings.TrimSpace(c.Username) == "":
		return errors.New("username is required")
	case c.Password == "":
		return errors.New("password is required")
	}
	return nil
}

// BasicAuthKey returns base64("application@vendor:businessUnit"), the value sent
// after "Basic " when requesting a token.
func (c Credentials) BasicAuthKey() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Application + "@" + c.Vendor + ":" + c.BusinessUnit))
}

// String hides the password so credentials can be logged safely.
func (c Credentials) String() string {
	return c.Application + "@" + c.Vendor + ":" + c.BusinessUnit + " (" + c.Username + ")"
}
