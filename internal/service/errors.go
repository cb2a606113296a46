// Package service implements the application logic between HTTP handlers
// and the repository.
package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLastAdmin          = errors.New("tenant must keep at least one admin")
	ErrInvalidAPIKey      = errors.New("invalid or disabled api key")
)
