package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/storage/filesystem"
	"earsip/backend/internal/storage/memory"
)

type letterFixture struct {
	svc   *LetterService
	store *memory.Store
	blobs *filesystem.Store
	staff *domain.User
	admin *domain.User
	other *domain.User
}

func newLetterFixture(t *testing.T) *letterFixture {
	t.Helper()

	store := memory.NewStore()
	blobs, err := filesystem.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.CreateClassification(ctx, &domain.Classification{
		ID:   uuid.NewString(),
		Code: "STAFF",
		Name: "Staff",
	}))

	f := &letterFixture{
		svc:   NewLetterService(store, blobs, zap.NewNop()),
		store: store,
		blobs: blobs,
		staff: newTestUser(t, store, "staff@example.com", domain.RoleStaff),
		admin: newTestUser(t, store, "admin@example.com", domain.RoleAdmin),
		other: newTestUser(t, store, "other@example.com", domain.RoleStaff),
	}
	return f
}

func newTestUser(t *testing.T, store *memory.Store, email string, role domain.UserRole) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

// createFailStore 模拟信件落库失败的存储
type createFailStore struct {
	*memory.Store
}

func (s *createFailStore) CreateLetter(ctx context.Context, letter *domain.Letter) error {
	return errors.New("insert failed")
}

func validInput() CreateLetterInput {
	return CreateLetterInput{
		Type:               domain.LetterIncoming,
		ReferenceNumber:    "REF-001",
		AgendaNumber:       "AGD-001",
		Sender:             "Dinas Pendidikan",
		Regarding:          "Undangan rapat koordinasi",
		LetterDate:         time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		ReceivedDate:       time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		ClassificationCode: "STAFF",
	}
}

func TestLetterCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("登记来文成功", func(t *testing.T) {
		f := newLetterFixture(t)

		letter, err := f.svc.Create(ctx, f.staff, validInput())

		require.NoError(t, err)
		assert.NotEmpty(t, letter.ID)
		assert.Equal(t, domain.LetterIncoming, letter.Type)
		assert.Equal(t, f.staff.ID, letter.UserID)
		assert.Equal(t, "REF-001", letter.ReferenceNumber)
	})

	t.Run("非来文类型被拒绝", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.Type = domain.LetterOutgoing
		_, err := f.svc.Create(ctx, f.staff, input)

		assert.ErrorIs(t, err, ErrInvalidLetterType)
	})

	t.Run("不存在的分类被拒绝", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.ClassificationCode = "MISSING"
		_, err := f.svc.Create(ctx, f.staff, input)

		assert.ErrorIs(t, err, ErrClassificationInvalid)
	})

	t.Run("允许的附件被保存", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "scan.pdf", Content: strings.NewReader("%PDF-1.4")},
			{Filename: "photo.jpg", Content: strings.NewReader("jpeg-bytes")},
		}
		letter, err := f.svc.Create(ctx, f.staff, input)

		require.NoError(t, err)
		require.Len(t, letter.Attachments, 2)
		assert.Equal(t, "pdf", letter.Attachments[0].Extension)
		assert.Equal(t, "jpg", letter.Attachments[1].Extension)
	})

	t.Run("不允许的扩展名被静默跳过", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "scan.pdf", Content: strings.NewReader("%PDF-1.4")},
			{Filename: "macro.docx", Content: strings.NewReader("zip-bytes")},
			{Filename: "script.sh", Content: strings.NewReader("#!/bin/sh")},
		}
		letter, err := f.svc.Create(ctx, f.staff, input)

		require.NoError(t, err)
		require.Len(t, letter.Attachments, 1)
		assert.Equal(t, "pdf", letter.Attachments[0].Extension)
	})

	t.Run("大写扩展名按字面值匹配被跳过", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "SCAN.PDF", Content: strings.NewReader("%PDF-1.4")},
		}
		letter, err := f.svc.Create(ctx, f.staff, input)

		require.NoError(t, err)
		assert.Empty(t, letter.Attachments)
	})

	t.Run("同名附件获得互不相同的存储文件名", func(t *testing.T) {
		f := newLetterFixture(t)

		fixed := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
		f.svc.SetClock(func() time.Time { return fixed })

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "scan.pdf", Content: strings.NewReader("first")},
			{Filename: "scan.pdf", Content: strings.NewReader("second")},
		}
		letter, err := f.svc.Create(ctx, f.staff, input)

		require.NoError(t, err)
		require.Len(t, letter.Attachments, 2)
		assert.NotEqual(t, letter.Attachments[0].Filename, letter.Attachments[1].Filename)

		// 两份文件内容都完整保留
		for i, want := range []string{"first", "second"} {
			rc, err := f.blobs.OpenBlob(ctx, letter.Attachments[i].Filename)
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			assert.Equal(t, want, string(data))
		}
	})

	t.Run("信件落库失败时清理已写入的附件文件", func(t *testing.T) {
		store := memory.NewStore()
		blobs, err := filesystem.NewStore(t.TempDir(), zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, store.CreateClassification(ctx, &domain.Classification{
			ID:   uuid.NewString(),
			Code: "STAFF",
			Name: "Staff",
		}))
		staff := newTestUser(t, store, "staff@example.com", domain.RoleStaff)

		svc := NewLetterService(&createFailStore{Store: store}, blobs, zap.NewNop())
		fixed := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
		svc.SetClock(func() time.Time { return fixed })

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "scan.pdf", Content: strings.NewReader("%PDF-1.4")},
		}
		_, err = svc.Create(ctx, staff, input)
		require.Error(t, err)

		storedName := fmt.Sprintf("%d-scan.pdf", fixed.Unix())
		_, err = blobs.OpenBlob(ctx, storedName)
		assert.Error(t, err)
	})

	t.Run("存储文件名带时间戳前缀且空格转连字符", func(t *testing.T) {
		f := newLetterFixture(t)

		fixed := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
		f.svc.SetClock(func() time.Time { return fixed })

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "surat masuk agustus.pdf", Content: strings.NewReader("%PDF-1.4")},
		}
		letter, err := f.svc.Create(ctx, f.staff, input)

		require.NoError(t, err)
		require.Len(t, letter.Attachments, 1)
		expected := fmt.Sprintf("%d-surat-masuk-agustus.pdf", fixed.Unix())
		assert.Equal(t, expected, letter.Attachments[0].Filename)
	})
}

func TestLetterGet(t *testing.T) {
	ctx := context.Background()

	t.Run("登记人可以查看自己的信件", func(t *testing.T) {
		f := newLetterFixture(t)

		created, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)

		got, err := f.svc.Get(ctx, f.staff, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		require.NotNil(t, got.Classification)
		assert.Equal(t, "STAFF", got.Classification.Code)
	})

	t.Run("staff不能查看他人的信件", func(t *testing.T) {
		f := newLetterFixture(t)

		created, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)

		_, err = f.svc.Get(ctx, f.other, created.ID)
		assert.ErrorIs(t, err, ErrLetterAccessDenied)
	})

	t.Run("管理员可以查看任何信件", func(t *testing.T) {
		f := newLetterFixture(t)

		created, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)

		got, err := f.svc.Get(ctx, f.admin, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("不存在的信件", func(t *testing.T) {
		f := newLetterFixture(t)

		_, err := f.svc.Get(ctx, f.admin, uuid.NewString())
		assert.ErrorIs(t, err, ErrLetterNotFound)
	})
}

func TestLetterAgenda(t *testing.T) {
	ctx := context.Background()

	t.Run("staff只能看到自己登记的信件", func(t *testing.T) {
		f := newLetterFixture(t)

		_, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)
		input := validInput()
		input.ReferenceNumber = "REF-002"
		_, err = f.svc.Create(ctx, f.other, input)
		require.NoError(t, err)

		page, err := f.svc.Agenda(ctx, f.staff, domain.LetterCriteria{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, f.staff.ID, page.Items[0].UserID)
	})

	t.Run("管理员看到全部信件", func(t *testing.T) {
		f := newLetterFixture(t)

		_, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, f.other, validInput())
		require.NoError(t, err)

		page, err := f.svc.Agenda(ctx, f.admin, domain.LetterCriteria{})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("按关键词搜索", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.Sender = "Kementerian Keuangan"
		_, err := f.svc.Create(ctx, f.admin, input)
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, f.admin, validInput())
		require.NoError(t, err)

		page, err := f.svc.Agenda(ctx, f.admin, domain.LetterCriteria{Search: "keuangan"})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Kementerian Keuangan", page.Items[0].Sender)
	})

	t.Run("按收文日期范围过滤", func(t *testing.T) {
		f := newLetterFixture(t)

		early := validInput()
		early.ReceivedDate = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		_, err := f.svc.Create(ctx, f.admin, early)
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, f.admin, validInput())
		require.NoError(t, err)

		since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		page, err := f.svc.Agenda(ctx, f.admin, domain.LetterCriteria{Since: &since})
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})

	t.Run("分页", func(t *testing.T) {
		f := newLetterFixture(t)

		for i := 0; i < 5; i++ {
			input := validInput()
			input.ReceivedDate = input.ReceivedDate.AddDate(0, 0, i)
			_, err := f.svc.Create(ctx, f.admin, input)
			require.NoError(t, err)
		}

		page, err := f.svc.Agenda(ctx, f.admin, domain.LetterCriteria{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, 2, page.Page)
	})
}

func TestLetterPrint(t *testing.T) {
	ctx := context.Background()

	t.Run("打印数据包含全部信件与信头配置", func(t *testing.T) {
		f := newLetterFixture(t)

		require.NoError(t, f.store.UpsertSetting(ctx, &domain.Setting{Code: "office_name", Value: "Dinas Arsip"}))
		for i := 0; i < 20; i++ {
			input := validInput()
			input.ReceivedDate = input.ReceivedDate.AddDate(0, 0, i)
			_, err := f.svc.Create(ctx, f.admin, input)
			require.NoError(t, err)
		}

		data, err := f.svc.Print(ctx, f.admin, domain.LetterCriteria{})
		require.NoError(t, err)
		// 打印视图不分页
		assert.Len(t, data.Letters, 20)
		assert.Equal(t, "Dinas Arsip", data.Settings["office_name"])
	})

	t.Run("staff的打印范围只含自己的信件", func(t *testing.T) {
		f := newLetterFixture(t)

		_, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, f.other, validInput())
		require.NoError(t, err)

		data, err := f.svc.Print(ctx, f.staff, domain.LetterCriteria{})
		require.NoError(t, err)
		require.Len(t, data.Letters, 1)
		assert.Equal(t, f.staff.ID, data.Letters[0].UserID)
	})
}

func TestLetterUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("更新成功", func(t *testing.T) {
		f := newLetterFixture(t)

		created, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, f.staff, created.ID, UpdateLetterInput{
			ReferenceNumber:    "REF-099",
			AgendaNumber:       created.AgendaNumber,
			Sender:             "Sekretariat Daerah",
			Regarding:          created.Regarding,
			LetterDate:         created.LetterDate,
			ReceivedDate:       created.ReceivedDate,
			ClassificationCode: "STAFF",
		})

		require.NoError(t, err)
		assert.Equal(t, "REF-099", updated.ReferenceNumber)
		assert.Equal(t, "Sekretariat Daerah", updated.Sender)
	})

	t.Run("staff不能更新他人的信件", func(t *testing.T) {
		f := newLetterFixture(t)

		created, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, f.other, created.ID, UpdateLetterInput{
			ReferenceNumber:    "REF-099",
			ClassificationCode: "STAFF",
		})
		assert.ErrorIs(t, err, ErrLetterAccessDenied)
	})

	t.Run("更新时追加附件", func(t *testing.T) {
		f := newLetterFixture(t)

		created, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, f.staff, created.ID, UpdateLetterInput{
			ReferenceNumber:    created.ReferenceNumber,
			AgendaNumber:       created.AgendaNumber,
			Sender:             created.Sender,
			Regarding:          created.Regarding,
			LetterDate:         created.LetterDate,
			ReceivedDate:       created.ReceivedDate,
			ClassificationCode: "STAFF",
			Uploads: []Upload{
				{Filename: "lampiran.pdf", Content: strings.NewReader("%PDF-1.4")},
			},
		})

		require.NoError(t, err)
		assert.Len(t, updated.Attachments, 1)
	})
}

func TestLetterDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("删除后信件与附件行消失", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "scan.pdf", Content: strings.NewReader("%PDF-1.4")},
		}
		created, err := f.svc.Create(ctx, f.staff, input)
		require.NoError(t, err)
		require.Len(t, created.Attachments, 1)
		attachmentID := created.Attachments[0].ID

		require.NoError(t, f.svc.Delete(ctx, f.staff, created.ID))

		_, err = f.svc.Get(ctx, f.staff, created.ID)
		assert.ErrorIs(t, err, ErrLetterNotFound)
		_, err = f.store.GetAttachment(ctx, attachmentID)
		assert.Error(t, err)
	})

	t.Run("staff不能删除他人的信件", func(t *testing.T) {
		f := newLetterFixture(t)

		created, err := f.svc.Create(ctx, f.staff, validInput())
		require.NoError(t, err)

		err = f.svc.Delete(ctx, f.other, created.ID)
		assert.ErrorIs(t, err, ErrLetterAccessDenied)
	})
}

func TestOpenAttachment(t *testing.T) {
	ctx := context.Background()

	t.Run("下载附件内容", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "scan.pdf", Content: strings.NewReader("%PDF-1.4 content")},
		}
		created, err := f.svc.Create(ctx, f.staff, input)
		require.NoError(t, err)

		at, rc, err := f.svc.OpenAttachment(ctx, f.staff, created.Attachments[0].ID)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 content", string(data))
		assert.Equal(t, "pdf", at.Extension)
	})

	t.Run("staff不能下载他人信件的附件", func(t *testing.T) {
		f := newLetterFixture(t)

		input := validInput()
		input.Uploads = []Upload{
			{Filename: "scan.pdf", Content: strings.NewReader("%PDF-1.4")},
		}
		created, err := f.svc.Create(ctx, f.staff, input)
		require.NoError(t, err)

		_, _, err = f.svc.OpenAttachment(ctx, f.other, created.Attachments[0].ID)
		assert.ErrorIs(t, err, ErrLetterAccessDenied)
	})
}
