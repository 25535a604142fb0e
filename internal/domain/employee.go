package domain

import "time"

type Employee struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"businessID"`
	FullName   string    `json:"fullName"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	IsActive   bool      `json:"isActive"`
	Registered bool      `json:"registered"`
	CreatedAt  time.Time `json:"createdAt"`
	Version    int32     `json:"-"`
}
