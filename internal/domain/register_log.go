package domain

import "time"

// PortalRegisterLog audit trail for registration attempts
type PortalRegisterLog struct {
	ID        int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Username  string    `json:"username" gorm:"size:255;index"`
	Mac       string    `json:"mac" gorm:"size:32"`
	Ip        string    `json:"ip" gorm:"size:64"`
	Contact   string    `json:"contact"`   // ok, recoverable, skipped
	Provision string    `json:"provision"` // ok, fatal
	Activate  string    `json:"activate"`  // ok, recoverable, skipped
	Status    string    `json:"status"`    // success, failure
	ErrorMsg  string    `json:"error_msg" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName Specify table name
func (PortalRegisterLog) TableName() string {
	return "portal_register_log"
}
