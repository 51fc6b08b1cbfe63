package domain

import "time"

// HotspotContact a visitor registration captured by the captive portal.
// In upsert mode there is at most one row per non-empty email.
type HotspotContact struct {
	ID         int64     `json:"id,string" csv:"id" gorm:"primaryKey;autoIncrement:false"`
	Email      string    `json:"email" csv:"email" gorm:"size:255;index"`
	Whatsapp   string    `json:"whatsapp" csv:"whatsapp" gorm:"size:64"`
	MacAddress string    `json:"mac_address" csv:"mac_address" gorm:"size:32;index"`
	IpAddress  string    `json:"ip_address" csv:"ip_address" gorm:"size:64"`
	SecretHash string    `json:"-" csv:"-" gorm:"size:128"` // bcrypt hash, random password rule only
	CreatedAt  time.Time `json:"created_at" csv:"created_at" gorm:"index"`
	LastSeenAt time.Time `json:"last_seen_at" csv:"last_seen_at"`
}

// TableName Specify table name
func (HotspotContact) TableName() string {
	return "hotspot_contact"
}
