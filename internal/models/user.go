// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username       string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email          string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash   string     `json:"-" gorm:"size:255;not null"`
	UserType       UserType   `json:"user_type" gorm:"type:varchar(20);not null"`
	Status         UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	WalletAddress  string     `json:"wallet_address" gorm:"size:128;index"`
	ProfileData    JSONB      `json:"profile_data" gorm:"type:jsonb"`
	LastLoginAt    *time.Time `json:"last_login_at"`

	// Relationships
	Agents    []Agent         `json:"agents,omitempty" gorm:"foreignKey:OwnerID"`
	Listings  []Listing       `json:"listings,omitempty" gorm:"foreignKey:SellerID"`
	Purchases []PurchaseIntent `json:"purchases,omitempty" gorm:"foreignKey:BuyerID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
