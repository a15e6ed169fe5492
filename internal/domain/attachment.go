package domain

import (
	"fmt"
	"strings"
	"time"
)

// Attachment 表示信件附件。
type Attachment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	LetterID  string    `json:"letterId" gorm:"type:varchar(36);index;not null"` // 所属信件ID
	Filename  string    `json:"filename" gorm:"type:varchar(255)"`               // 存储文件名
	Extension string    `json:"extension" gorm:"type:varchar(20)"`               // 原始扩展名
	UserID    string    `json:"userId" gorm:"type:varchar(36);index"`            // 上传人ID
	CreatedAt time.Time `json:"createdAt"`
}

// allowedExtensions 允许持久化的附件扩展名。
// 按字面值匹配，不做大小写归一（与既有数据保持一致）。
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"pdf":  true,
}

// AllowedExtension 判断扩展名是否允许上传。
func AllowedExtension(ext string) bool {
	return allowedExtensions[ext]
}

// FileExtension 取文件名最后一个点之后的部分，没有扩展名时返回空串。
func FileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return filename[idx+1:]
}

// StoredFilename 生成附件的存储文件名：
// Unix 时间戳前缀 + 原始文件名，空格替换为连字符。
func StoredFilename(at time.Time, original string) string {
	name := fmt.Sprintf("%d-%s", at.Unix(), original)
	return strings.ReplaceAll(name, " ", "-")
}
