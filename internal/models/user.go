package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the account entity. Username, email and phone number are each
// globally unique; the password field only ever holds a bcrypt hash.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:30;uniqueIndex"`
	Email       string    `json:"email" gorm:"uniqueIndex"`
	PhoneNumber string    `json:"phone_number" gorm:"size:15;uniqueIndex"`
	FirstName   string    `json:"first_name" gorm:"size:15"`
	LastName    string    `json:"last_name" gorm:"size:15"`
	Password    string    `json:"-"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserWithFollowers is a directory listing row: a user plus the aggregate
// follower count the listing is ordered by.
type UserWithFollowers struct {
	User
	FollowersCount int64 `json:"followers_count"`
}

type RegisterRequest struct {
	Username        string `json:"username" form:"username" validate:"required,max=30,username"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	FirstName       string `json:"first_name" form:"first_name" validate:"required,max=15,alpha_name"`
	LastName        string `json:"last_name" form:"last_name" validate:"required,max=15,alpha_name"`
	PhoneNumber     string `json:"phone_number" form:"phone_number" validate:"required,max=15"`
	Password        string `json:"password" form:"password" validate:"required,min=4,max=128"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,min=4,max=128"`
}

type SignInRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=30"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UpdateProfileRequest carries the editable profile fields. The optional
// profile image arrives as a separate multipart file part.
type UpdateProfileRequest struct {
	Username    string `json:"username" form:"username" validate:"required,max=30,username"`
	Email       string `json:"email" form:"email" validate:"required,email"`
	FirstName   string `json:"first_name" form:"first_name" validate:"required,max=15,alpha_name"`
	LastName    string `json:"last_name" form:"last_name" validate:"required,max=15,alpha_name"`
	PhoneNumber string `json:"phone_number" form:"phone_number" validate:"required,max=15"`
}

// DeleteAccountRequest asks the user to type their own username to confirm.
type DeleteAccountRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=30"`
}

type ResetRequestRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=30"`
}

type ResetVerifyRequest struct {
	Token string `json:"token" form:"token" validate:"required"`
	Code  string `json:"code" form:"code" validate:"required,len=4"`
}

type ResetConfirmRequest struct {
	Token           string `json:"token" form:"token" validate:"required"`
	Password        string `json:"password" form:"password" validate:"required,min=4,max=128"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,min=4,max=128"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
