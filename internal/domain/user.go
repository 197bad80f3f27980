// Package domain contains session entities without transport or lifecycle logic.
package domain

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

const (
	MaxUsernameLen = 36
	MaxTopicLen    = 200
)

var (
	ErrUsernameTooLong  = errors.New("username too long")
	ErrUsernameEmpty    = errors.New("username empty")
	ErrTopicEmpty       = errors.New("topic empty")
	ErrTopicTooLong     = errors.New("topic too long")
	ErrInvalidSignature = errors.New("invalid signature")
)

// MeetingArgs are the credentials and switches used to join one session.
type MeetingArgs struct {
	SDKKey             string `json:"sdkKey"`
	Topic              string `json:"topic"`
	Signature          string `json:"-"`
	UserName           string `json:"userName"`
	Password           string `json:"-"`
	WebEndpoint        string `json:"webEndpoint,omitempty"`
	EnforceGalleryView bool   `json:"enforceGalleryView"`
}

// Validate checks the fields a join cannot go without.
func (a MeetingArgs) Validate() error {
	if err := ValidateUsername(a.UserName); err != nil {
		return err
	}
	if len(a.Topic) == 0 {
		return ErrTopicEmpty
	}
	if len(a.Topic) > MaxTopicLen {
		return ErrTopicTooLong
	}
	if a.Signature == "" {
		return ErrInvalidSignature
	}
	return nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

// GuestName builds a "<browser>-<n>" display name for users that gave none.
func GuestName(browser string) string {
	if browser == "" {
		browser = "Guest"
	}
	return fmt.Sprintf("%s-%d", browser, rand.IntN(1000))
}
