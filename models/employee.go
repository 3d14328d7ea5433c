package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Employee struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	FullName  string    `json:"full_name" gorm:"size:100;not null"`
	Phone     string    `json:"phone" gorm:"size:15"`
	Password  []byte    `json:"-" gorm:"not null"`
	IsDeleted bool      `json:"-" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (employee *Employee) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	employee.Password = hashedPassword
	return nil
}

func (employee *Employee) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword(employee.Password, []byte(password))
}

// DisplayName is what receipts print for the serving employee.
func (employee *Employee) DisplayName() string {
	if employee.FullName != "" {
		return employee.FullName
	}
	return employee.Username
}
