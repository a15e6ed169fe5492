package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchLocale(t *testing.T) {
	t.Run("空请求头返回默认语言", func(t *testing.T) {
		assert.Equal(t, "en", MatchLocale("", "en"))
		assert.Equal(t, "id", MatchLocale("", "id"))
	})

	t.Run("匹配印尼语", func(t *testing.T) {
		assert.Equal(t, "id", MatchLocale("id", "en"))
		assert.Equal(t, "id", MatchLocale("id-ID,id;q=0.9,en;q=0.8", "en"))
	})

	t.Run("匹配英语", func(t *testing.T) {
		assert.Equal(t, "en", MatchLocale("en", "id"))
		assert.Equal(t, "en", MatchLocale("en-US,en;q=0.9", "id"))
	})

	t.Run("无效请求头返回默认语言", func(t *testing.T) {
		assert.Equal(t, "id", MatchLocale(";;;", "id"))
	})

	t.Run("未知的默认语言归一为英语", func(t *testing.T) {
		assert.Equal(t, "en", MatchLocale("", "fr"))
	})
}

func TestT(t *testing.T) {
	t.Run("返回对应语言的文案", func(t *testing.T) {
		assert.Equal(t, "successfully added incoming letter", T("en", "letter.created"))
		assert.Equal(t, "berhasil menambahkan surat masuk", T("id", "letter.created"))
	})

	t.Run("未知语言回落到英语", func(t *testing.T) {
		assert.Equal(t, "letter not found", T("fr", "letter.not_found"))
	})

	t.Run("未知key原样返回", func(t *testing.T) {
		assert.Equal(t, "does.not.exist", T("en", "does.not.exist"))
	})
}

func TestPrintTitle(t *testing.T) {
	t.Run("印尼语标题", func(t *testing.T) {
		assert.Equal(t, "agenda surat masuk", PrintTitle("id"))
	})

	t.Run("英语标题", func(t *testing.T) {
		assert.Equal(t, "incoming letter agenda", PrintTitle("en"))
	})

	t.Run("未知语言按英语处理", func(t *testing.T) {
		assert.Equal(t, "incoming letter agenda", PrintTitle("fr"))
	})
}
