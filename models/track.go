package models

import "time"

// Track представляет трассу, созданную из загруженного изображения.
type Track struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Owner     string     `json:"owner" db:"owner"`
	AssetKey  *string    `json:"-" db:"asset_key"`
	AssetURL  *string    `json:"asset_url,omitempty" db:"-"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
