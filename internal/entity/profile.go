package entity

// Account is an identity known to the external identity service
type Account struct {
	Id          string `json:"id" gorm:"column:id;primaryKey;size:64"`
	Role        string `json:"role" gorm:"column:role;size:16"`
	DisplayName string `json:"display_name" gorm:"column:display_name"`
	CreatedAt   int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt   int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Organization is an organization profile owned by an account
type Organization struct {
	Id        string `json:"id" gorm:"column:id;primaryKey;size:36"`
	AccountId string `json:"account_id" gorm:"column:account_id;size:64;index"`
	Name      string `json:"name" gorm:"column:name"`
	IsDeleted bool   `json:"is_deleted" gorm:"column:is_deleted"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for Organization
func (Organization) TableName() string {
	return "organizations"
}

// Merchant is a merchant profile owned by an account
type Merchant struct {
	Id           string `json:"id" gorm:"column:id;primaryKey;size:36"`
	AccountId    string `json:"account_id" gorm:"column:account_id;size:64;index"`
	BusinessName string `json:"business_name" gorm:"column:business_name"`
	IsDeleted    bool   `json:"is_deleted" gorm:"column:is_deleted"`
	CreatedAt    int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for Merchant
func (Merchant) TableName() string {
	return "merchants"
}

// Homeless is the profile of an individual in need of help
type Homeless struct {
	Id        string `json:"id" gorm:"column:id;primaryKey;size:36"`
	AccountId string `json:"account_id" gorm:"column:account_id;size:64;index"`
	Name      string `json:"name" gorm:"column:name"`
	IsDeleted bool   `json:"is_deleted" gorm:"column:is_deleted"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for Homeless
func (Homeless) TableName() string {
	return "homeless_profiles"
}

// Profile is the role-agnostic view of a party profile
type Profile struct {
	Id        string
	Role      string
	AccountId string
	Name      string
	IsDeleted bool
}

// Active reports whether the profile exists and is not soft-deleted
func (p *Profile) Active() bool {
	return p != nil && !p.IsDeleted
}
