package domain

import "time"

type Account struct {
	AccountID        string    `json:"id" dynamodbav:"account_id"`
	FirstName        string    `json:"first_name" dynamodbav:"first_name"`
	LastName         string    `json:"last_name" dynamodbav:"last_name"`
	Email            string    `json:"email" dynamodbav:"email"`
	MobileNumber     string    `json:"mobile_number" dynamodbav:"mobile_number"`
	PasswordHash     string    `json:"-" dynamodbav:"password_hash"`
	Role             Role      `json:"role" dynamodbav:"role"`
	District         string    `json:"district,omitempty" dynamodbav:"district"`
	Pincode          string    `json:"pincode,omitempty" dynamodbav:"pincode"`
	Address          string    `json:"address,omitempty" dynamodbav:"address"`
	IsActive         bool      `json:"is_active" dynamodbav:"is_active"`
	IsMobileVerified bool      `json:"is_mobile_verified" dynamodbav:"is_mobile_verified"`
	IsEmailVerified  bool      `json:"is_email_verified" dynamodbav:"is_email_verified"`
	CreatedAt        time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type RegisterAccountRequest struct {
	FirstName    string `json:"first_name" validate:"required,max=50"`
	LastName     string `json:"last_name" validate:"required,max=50"`
	Email        string `json:"email" validate:"required,email"`
	MobileNumber string `json:"mobile_number" validate:"required,len=10,numeric"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	District     string `json:"district" validate:"max=100"`
	Pincode      string `json:"pincode" validate:"omitempty,len=6,numeric"`
	Address      string `json:"address" validate:"max=500"`
}
