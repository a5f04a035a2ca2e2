package model

import (
	"errors"
	"time"
	"unicode/utf8"
)

// AddressLength is the length of a fully-qualified Aptos account address
// ("0x" followed by 64 hex chars). Wallets always submit the long form.
const AddressLength = 66

type User struct {
	ID        int64     `json:"id"`
	Address   string    `json:"address"`
	Nickname  string    `json:"nickname"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Followers int       `json:"followers"`
	Following int       `json:"following"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type UserCreateRequest struct {
	Address string `json:"address"`
}

func (p UserCreateRequest) Validate() error {
	if p.Address == "" {
		return errors.New("address is required")
	}
	if len(p.Address) < AddressLength {
		return errors.New("address is not a valid account address")
	}
	return nil
}

// UserUpdateRequest carries profile mutations. Nil fields are left untouched.
type UserUpdateRequest struct {
	Address  string  `json:"address"`
	Nickname *string `json:"nickname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

func (p UserUpdateRequest) Validate() error {
	if p.Address == "" {
		return errors.New("address is required")
	}
	if p.Nickname != nil {
		n := utf8.RuneCountInString(*p.Nickname)
		if n < 2 || n > 50 {
			return errors.New("nickname must be 2-50 characters")
		}
	}
	return nil
}
