// Package i18n 提供英语/印尼语双语的界面文案。
// 语言协商基于 Accept-Language 请求头，未匹配时回落到默认语言。
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

// 支持的语言，第一个为匹配失败时的回落语言
var supported = []language.Tag{
	language.English,    // en
	language.Indonesian, // id
}

var matcher = language.NewMatcher(supported)

// messages 按 key -> locale -> 文案 组织
var messages = map[string]map[string]string{
	"letter.created": {
		"en": "successfully added incoming letter",
		"id": "berhasil menambahkan surat masuk",
	},
	"letter.updated": {
		"en": "successfully updated incoming letter",
		"id": "berhasil memperbarui surat masuk",
	},
	"letter.deleted": {
		"en": "successfully deleted incoming letter",
		"id": "berhasil menghapus surat masuk",
	},
	"letter.not_found": {
		"en": "letter not found",
		"id": "surat tidak ditemukan",
	},
	"letter.access_denied": {
		"en": "you are not allowed to access this letter",
		"id": "anda tidak diizinkan mengakses surat ini",
	},
	"letter.invalid_type": {
		"en": "the letter type must be incoming",
		"id": "jenis surat harus surat masuk",
	},
	"letter.create_failed": {
		"en": "failed to add incoming letter",
		"id": "gagal menambahkan surat masuk",
	},
	"letter.update_failed": {
		"en": "failed to update incoming letter",
		"id": "gagal memperbarui surat masuk",
	},
	"letter.delete_failed": {
		"en": "failed to delete incoming letter",
		"id": "gagal menghapus surat masuk",
	},
	"classification.not_found": {
		"en": "classification not found",
		"id": "klasifikasi tidak ditemukan",
	},
	"classification.exists": {
		"en": "classification code already exists",
		"id": "kode klasifikasi sudah digunakan",
	},
	"auth.invalid_credentials": {
		"en": "invalid email or password",
		"id": "email atau kata sandi salah",
	},
	"auth.account_disabled": {
		"en": "this account has been disabled",
		"id": "akun ini telah dinonaktifkan",
	},
	"auth.unauthorized": {
		"en": "authentication required",
		"id": "autentikasi diperlukan",
	},
	"auth.forbidden": {
		"en": "you do not have permission to perform this action",
		"id": "anda tidak memiliki izin untuk melakukan tindakan ini",
	},
	"validation.failed": {
		"en": "the given data was invalid",
		"id": "data yang diberikan tidak valid",
	},
	"error.internal": {
		"en": "an unexpected error occurred",
		"id": "terjadi kesalahan yang tidak terduga",
	},
	"menu.agenda": {
		"en": "agenda",
		"id": "agenda",
	},
	"menu.letter": {
		"en": "letter",
		"id": "surat",
	},
	"menu.incoming": {
		"en": "incoming",
		"id": "masuk",
	},
}

// MatchLocale 根据 Accept-Language 请求头协商语言，
// 返回 "en" 或 "id"。header 为空或无法匹配时返回 fallback。
func MatchLocale(header, fallback string) string {
	if header == "" {
		return normalize(fallback)
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return normalize(fallback)
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return normalize(fallback)
	}
	if idx == 1 {
		return "id"
	}
	return "en"
}

func normalize(locale string) string {
	if locale == "id" {
		return "id"
	}
	return "en"
}

// T 返回指定 key 在指定语言下的文案。
// 语言缺失时回落到英语，key 不存在时原样返回 key。
func T(locale, key string) string {
	entry, ok := messages[key]
	if !ok {
		return key
	}
	if msg, ok := entry[normalize(locale)]; ok {
		return msg
	}
	return entry["en"]
}

// PrintTitle 返回打印视图的标题。
// 印尼语为「agenda surat masuk」，英语为「incoming letter agenda」，
// 两种语言里修饰语（masuk/incoming）的位置不同。
func PrintTitle(locale string) string {
	agenda := T(locale, "menu.agenda")
	letter := T(locale, "menu.letter")
	incoming := T(locale, "menu.incoming")
	if normalize(locale) == "id" {
		return fmt.Sprintf("%s %s %s", agenda, letter, incoming)
	}
	return fmt.Sprintf("%s %s %s", incoming, letter, agenda)
}
