package entity

// PushToken is a device token registered by an account
type PushToken struct {
	Id        int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	AccountId string `json:"account_id" gorm:"column:account_id;size:64;uniqueIndex:uk_account_token,priority:1"`
	Token     string `json:"token" gorm:"column:token;size:255;uniqueIndex:uk_account_token,priority:2"`
	Platform  string `json:"platform" gorm:"column:platform;size:16"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for PushToken
func (PushToken) TableName() string {
	return "push_tokens"
}
