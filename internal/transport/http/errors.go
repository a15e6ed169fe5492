package httptransport

import (
	"earsip/backend/internal/auth"
	"earsip/backend/internal/i18n"
	"earsip/backend/internal/service"
)

// errorKeys 业务错误 -> 文案 key 的映射，
// 实际文案按请求语言从 i18n 取。
var errorKeys = map[error]string{
	service.ErrLetterNotFound:         "letter.not_found",
	service.ErrLetterAccessDenied:     "letter.access_denied",
	service.ErrInvalidLetterType:      "letter.invalid_type",
	service.ErrClassificationInvalid:  "validation.failed",
	service.ErrClassificationNotFound: "classification.not_found",
	service.ErrClassificationExists:   "classification.exists",

	auth.ErrInvalidCredentials: "auth.invalid_credentials",
	auth.ErrUserInactive:       "auth.account_disabled",
	auth.ErrUserNotFound:       "auth.invalid_credentials",
	auth.ErrEmailExists:        "validation.failed",
	auth.ErrInvalidEmail:       "validation.failed",
}

// ErrorMessage 返回错误在指定语言下的提示文案
func ErrorMessage(locale string, err error) string {
	if key, ok := errorKeys[err]; ok {
		return i18n.T(locale, key)
	}
	return err.Error()
}
