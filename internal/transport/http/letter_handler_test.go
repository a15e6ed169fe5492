package httptransport

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"earsip/backend/internal/service"
)

type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

func TestCloseUploads(t *testing.T) {
	t.Run("关闭实现了Closer的附件内容", func(t *testing.T) {
		first := &trackingReader{Reader: strings.NewReader("a")}
		second := &trackingReader{Reader: strings.NewReader("b")}

		closeUploads([]service.Upload{
			{Filename: "a.pdf", Content: first},
			{Filename: "b.pdf", Content: second},
		})

		assert.True(t, first.closed)
		assert.True(t, second.closed)
	})

	t.Run("普通Reader与空列表不panic", func(t *testing.T) {
		closeUploads([]service.Upload{{Filename: "a.pdf", Content: strings.NewReader("a")}})
		closeUploads(nil)
	})
}

func TestParseUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &LetterHandler{maxFiles: 2, log: zap.NewNop()}

	newFormContext := func(t *testing.T, names []string) *gin.Context {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		for _, name := range names {
			part, err := w.CreateFormFile("attachments", name)
			require.NoError(t, err)
			_, err = part.Write([]byte("content"))
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/v1/letters/incoming", &body)
		c.Request.Header.Set("Content-Type", w.FormDataContentType())
		return c
	}

	t.Run("解析附件并可安全关闭句柄", func(t *testing.T) {
		c := newFormContext(t, []string{"scan.pdf", "photo.jpg"})

		uploads, err := h.parseUploads(c)
		require.NoError(t, err)
		require.Len(t, uploads, 2)
		assert.Equal(t, "scan.pdf", uploads[0].Filename)

		data, err := io.ReadAll(uploads[0].Content)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))

		closeUploads(uploads)
	})

	t.Run("超出附件数量上限报错", func(t *testing.T) {
		c := newFormContext(t, []string{"a.pdf", "b.pdf", "c.pdf"})

		_, err := h.parseUploads(c)
		assert.ErrorContains(t, err, "too many attachments")
	})

	t.Run("非multipart请求返回空列表", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/v1/letters/incoming", strings.NewReader("type=incoming"))
		c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		uploads, err := h.parseUploads(c)
		require.NoError(t, err)
		assert.Empty(t, uploads)
	})
}
