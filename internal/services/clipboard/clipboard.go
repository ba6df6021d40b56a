// Package clipboard provides access to the system clipboard.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrUnavailable reports that clipboard access is disabled or unsupported on this system.
var ErrUnavailable = errors.New("clipboard unavailable")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}

// Disabled is a Copier that always reports ErrUnavailable.
type Disabled struct{}

// Copy implements Copier.
func (Disabled) Copy(string) error {
	return ErrUnavailable
}

var (
	_ Copier = (*Service)(nil)
	_ Copier = Disabled{}
)
