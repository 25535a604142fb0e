package domain

import "time"

// Business 即租户，员工、门店、班次都归属于某一个商户
type Business struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

type Branch struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"businessID"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"createdAt"`
	Version    int32     `json:"-"`
}
