package app

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHTTPTestApp(h *MessagingHTTPHandler, userID string) *fiber.App {
	r := fiber.New()
	r.Use(func(c *fiber.Ctx) error {
		c.Locals(middlewares.TokenUserID, userID)
		return c.Next()
	})
	r.Get("/inbox", h.Inbox)
	r.Post("/media/audio", h.UploadAudio)
	return r
}

func audioRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="voice.m4a"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/media/audio", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestMessagingHTTPHandler_UploadAudio(t *testing.T) {
	mockMedia := new(MockMediaStore)
	mockMedia.On("UploadAudio", mock.Anything, "A", mock.Anything, int64(5), "audio/mp4").
		Return("http://media/rural/audio/A/x", nil)

	r := newHTTPTestApp(NewMessagingHTTPHandler(nil, mockMedia, 1<<20), "A")
	resp, err := r.Test(audioRequest(t, "audio/mp4", []byte("abcde")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]string
	b, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "http://media/rural/audio/A/x", out["audio_url"])
	mockMedia.AssertExpectations(t)
}

func TestMessagingHTTPHandler_UploadAudio_Rejects(t *testing.T) {
	mockMedia := new(MockMediaStore)
	r := newHTTPTestApp(NewMessagingHTTPHandler(nil, mockMedia, 4), "A")

	resp, err := r.Test(audioRequest(t, "image/png", []byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	resp, err = r.Test(audioRequest(t, "audio/mpeg", []byte("too long")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, err = r.Test(httptest.NewRequest(http.MethodPost, "/media/audio", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	mockMedia.AssertNotCalled(t, "UploadAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMessagingHTTPHandler_Inbox(t *testing.T) {
	store := newMemStore(
		textMessage("1", "A", "B", "hi", false, 1),
		textMessage("2", "B", "A", "yo", false, 2),
	)
	mockProfiles := new(MockProfileRepository)
	mockProfiles.On("FindName", mock.Anything, "B").Return("Bob", nil)

	h := NewMessagingHTTPHandler(NewAggregator(store, mockProfiles, nil, 4), nil, 0)
	resp, err := newHTTPTestApp(h, "A").Test(httptest.NewRequest(http.MethodGet, "/inbox", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Inbox       []domain.ConversationSummary `json:"inbox"`
		TotalUnread int                          `json:"total_unread"`
	}
	b, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Inbox, 1)
	assert.Equal(t, "Bob", out.Inbox[0].PartnerDisplayName)
	assert.Equal(t, "yo", out.Inbox[0].LatestMessage.Text)
	assert.Equal(t, 1, out.TotalUnread)

	resp, err = newHTTPTestApp(h, "").Test(httptest.NewRequest(http.MethodGet, "/inbox", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
