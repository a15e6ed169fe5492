package domain

import "time"

// LetterType 信件类型
type LetterType string

const (
	LetterIncoming LetterType = "incoming" // 来文（收到的信件）
	LetterOutgoing LetterType = "outgoing" // 发文
)

// Letter 表示一封登记在案的信件。
type Letter struct {
	ID                 string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Type               LetterType `json:"type" gorm:"type:varchar(20);not null;index"`
	ReferenceNumber    string     `json:"referenceNumber" gorm:"type:varchar(100);index"`  // 来文编号
	AgendaNumber       string     `json:"agendaNumber" gorm:"type:varchar(100);index"`     // 登记编号
	Sender             string     `json:"sender" gorm:"type:varchar(200)"`                 // 来文单位/寄件人
	Regarding          string     `json:"regarding" gorm:"type:text"`                      // 事由
	LetterDate         time.Time  `json:"letterDate"`                                      // 信件落款日期
	ReceivedDate       time.Time  `json:"receivedDate" gorm:"index"`                       // 收文日期
	ClassificationCode string     `json:"classificationCode" gorm:"type:varchar(50);index"`
	UserID             string     `json:"userId" gorm:"type:varchar(36);index;not null"` // 登记人ID

	// 关联实体（按需预加载）
	Classification *Classification `json:"classification,omitempty" gorm:"foreignKey:ClassificationCode;references:Code"`
	User           *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Attachments    []*Attachment   `json:"attachments,omitempty" gorm:"foreignKey:LetterID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultPageSize 列表查询未指定分页大小时的默认值。
const DefaultPageSize = 15

// LetterCriteria 描述信件查询条件。
// UserID 非空时表示只返回该用户登记的信件（staff 角色的可见范围）。
type LetterCriteria struct {
	Type           LetterType
	UserID         string
	Search         string     // 关键词（编号、寄件人、事由）
	Since          *time.Time // 收文日期下限
	Until          *time.Time // 收文日期上限
	Classification string     // 分类代码过滤
	Page           int
	PageSize       int
	Unpaginated    bool // 打印视图使用：返回全部匹配记录
}

// LetterPage 分页查询结果。
type LetterPage struct {
	Items      []Letter `json:"items"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
}

// NewLetterPage 构造分页结果并计算总页数。
func NewLetterPage(items []Letter, total, page, pageSize int) *LetterPage {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &LetterPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
