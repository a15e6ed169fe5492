package domain

// Setting 信头/打印配置项，打印视图按 code -> value 的映射渲染。
type Setting struct {
	Code  string `json:"code" gorm:"primaryKey;type:varchar(100)"`
	Value string `json:"value" gorm:"type:varchar(500)"`
}

// DefaultSettings 返回初始的信头配置（迁移时写入）。
func DefaultSettings() []Setting {
	return []Setting{
		{Code: "app_name", Value: "eArsip"},
		{Code: "office_name", Value: ""},
		{Code: "office_address", Value: ""},
		{Code: "office_phone", Value: ""},
		{Code: "office_email", Value: ""},
	}
}
