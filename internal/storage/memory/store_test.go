package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/storage"
)

func newLetter(userID string, received time.Time) *domain.Letter {
	now := time.Now()
	return &domain.Letter{
		ID:                 uuid.NewString(),
		Type:               domain.LetterIncoming,
		ReferenceNumber:    "REF-" + uuid.NewString()[:8],
		AgendaNumber:       "AGD-001",
		Sender:             "Dinas Pendidikan",
		Regarding:          "Undangan rapat",
		LetterDate:         received.AddDate(0, 0, -2),
		ReceivedDate:       received,
		ClassificationCode: "STAFF",
		UserID:             userID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestLetterLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("创建并获取", func(t *testing.T) {
		store := NewStore()
		letter := newLetter("user-1", time.Now())
		letter.Attachments = []*domain.Attachment{{
			ID:       uuid.NewString(),
			LetterID: letter.ID,
			Filename: "123-scan.pdf",
		}}

		require.NoError(t, store.CreateLetter(ctx, letter))

		got, err := store.GetLetter(ctx, letter.ID)
		require.NoError(t, err)
		assert.Equal(t, letter.ID, got.ID)
		assert.Len(t, got.Attachments, 1)
	})

	t.Run("获取不存在的信件", func(t *testing.T) {
		store := NewStore()

		_, err := store.GetLetter(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrLetterNotFound)
	})

	t.Run("更新", func(t *testing.T) {
		store := NewStore()
		letter := newLetter("user-1", time.Now())
		require.NoError(t, store.CreateLetter(ctx, letter))

		letter.Sender = "Sekretariat Daerah"
		require.NoError(t, store.UpdateLetter(ctx, letter))

		got, err := store.GetLetter(ctx, letter.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sekretariat Daerah", got.Sender)
	})

	t.Run("删除级联附件行", func(t *testing.T) {
		store := NewStore()
		letter := newLetter("user-1", time.Now())
		at := &domain.Attachment{ID: uuid.NewString(), LetterID: letter.ID, Filename: "123-scan.pdf"}
		letter.Attachments = []*domain.Attachment{at}
		require.NoError(t, store.CreateLetter(ctx, letter))

		require.NoError(t, store.DeleteLetter(ctx, letter.ID))

		_, err := store.GetLetter(ctx, letter.ID)
		assert.ErrorIs(t, err, storage.ErrLetterNotFound)
		_, err = store.GetAttachment(ctx, at.ID)
		assert.ErrorIs(t, err, storage.ErrAttachmentNotFound)
	})
}

func TestListLetters(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	seed := func(t *testing.T) *Store {
		t.Helper()
		store := NewStore()
		for i := 0; i < 4; i++ {
			require.NoError(t, store.CreateLetter(ctx, newLetter("user-1", base.AddDate(0, 0, i))))
		}
		require.NoError(t, store.CreateLetter(ctx, newLetter("user-2", base.AddDate(0, 0, 10))))
		return store
	}

	t.Run("按用户过滤", func(t *testing.T) {
		store := seed(t)

		page, err := store.ListLetters(ctx, domain.LetterCriteria{UserID: "user-2"})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "user-2", page.Items[0].UserID)
	})

	t.Run("按收文日期倒序", func(t *testing.T) {
		store := seed(t)

		page, err := store.ListLetters(ctx, domain.LetterCriteria{})
		require.NoError(t, err)
		require.Len(t, page.Items, 5)
		for i := 1; i < len(page.Items); i++ {
			assert.False(t, page.Items[i-1].ReceivedDate.Before(page.Items[i].ReceivedDate))
		}
	})

	t.Run("日期范围过滤", func(t *testing.T) {
		store := seed(t)

		since := base.AddDate(0, 0, 2)
		until := base.AddDate(0, 0, 5)
		page, err := store.ListLetters(ctx, domain.LetterCriteria{Since: &since, Until: &until})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	})

	t.Run("关键词搜索不区分大小写", func(t *testing.T) {
		store := NewStore()
		letter := newLetter("user-1", base)
		letter.Sender = "Kementerian Keuangan"
		require.NoError(t, store.CreateLetter(ctx, letter))

		page, err := store.ListLetters(ctx, domain.LetterCriteria{Search: "KEUANGAN"})
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})

	t.Run("分页与总数", func(t *testing.T) {
		store := seed(t)

		page, err := store.ListLetters(ctx, domain.LetterCriteria{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 3, page.TotalPages)
	})

	t.Run("不分页返回全部", func(t *testing.T) {
		store := seed(t)

		page, err := store.ListLetters(ctx, domain.LetterCriteria{Unpaginated: true})
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
	})
}

func TestClassificationRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("code唯一", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.CreateClassification(ctx, &domain.Classification{
			ID: uuid.NewString(), Code: "STAFF", Name: "Staff",
		}))
		err := store.CreateClassification(ctx, &domain.Classification{
			ID: uuid.NewString(), Code: "STAFF", Name: "Duplicate",
		})
		assert.ErrorIs(t, err, storage.ErrClassificationExists)
	})

	t.Run("列表按code排序", func(t *testing.T) {
		store := NewStore()

		for _, code := range []string{"C", "A", "B"} {
			require.NoError(t, store.CreateClassification(ctx, &domain.Classification{
				ID: uuid.NewString(), Code: code,
			}))
		}

		out, err := store.ListClassifications(ctx)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, "A", out[0].Code)
		assert.Equal(t, "C", out[2].Code)
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("邮箱唯一且不区分大小写", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.CreateUser(ctx, &domain.User{
			ID: uuid.NewString(), Email: "user@example.com",
		}))
		err := store.CreateUser(ctx, &domain.User{
			ID: uuid.NewString(), Email: "USER@example.com",
		})
		assert.ErrorIs(t, err, storage.ErrUserExists)

		got, err := store.GetUserByEmail(ctx, "User@Example.Com")
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", got.Email)
	})
}

func TestSettingRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert覆盖旧值", func(t *testing.T) {
		store := NewStore()

		require.NoError(t, store.UpsertSetting(ctx, &domain.Setting{Code: "office_name", Value: "Lama"}))
		require.NoError(t, store.UpsertSetting(ctx, &domain.Setting{Code: "office_name", Value: "Baru"}))

		m, err := store.SettingsMap(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Baru", m["office_name"])
	})
}
