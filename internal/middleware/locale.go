package middleware

import (
	"github.com/gin-gonic/gin"

	"earsip/backend/internal/i18n"
)

// ContextLocaleKey 上下文中的语言键
const ContextLocaleKey = "locale"

// Locale 语言协商中间件。
// 优先级：?lang 查询参数 > Accept-Language 请求头 > 默认语言。
func Locale(defaultLocale string) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := ""
		if lang := c.Query("lang"); lang != "" {
			locale = i18n.MatchLocale(lang, defaultLocale)
		} else {
			locale = i18n.MatchLocale(c.GetHeader("Accept-Language"), defaultLocale)
		}

		c.Set(ContextLocaleKey, locale)
		c.Next()
	}
}

// CurrentLocale 从上下文取出协商后的语言，缺省为英语
func CurrentLocale(c *gin.Context) string {
	val, exists := c.Get(ContextLocaleKey)
	if !exists {
		return "en"
	}
	locale, ok := val.(string)
	if !ok {
		return "en"
	}
	return locale
}
