package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gallery-backend/internal/domains/item/model"
	"gallery-backend/internal/domains/item/service"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/middleware"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Upload(ctx context.Context, actor shared.Actor, req model.UploadRequest) (*model.Item, error) {
	args := m.Called(actor, req)
	it, _ := args.Get(0).(*model.Item)
	return it, args.Error(1)
}

func (m *mockService) UpdateMetadata(ctx context.Context, actor shared.Actor, id int64, req model.UpdateRequest) (*model.Item, error) {
	args := m.Called(actor, id, req)
	it, _ := args.Get(0).(*model.Item)
	return it, args.Error(1)
}

func (m *mockService) List(ctx context.Context, actor shared.Actor, req model.ListItemsRequest) (*model.ListItemsResult, error) {
	args := m.Called(actor, req)
	res, _ := args.Get(0).(*model.ListItemsResult)
	return res, args.Error(1)
}

func (m *mockService) Related(ctx context.Context, actor shared.Actor, id int64, limit int) ([]model.Item, error) {
	args := m.Called(actor, id, limit)
	items, _ := args.Get(0).([]model.Item)
	return items, args.Error(1)
}

func (m *mockService) Get(ctx context.Context, actor shared.Actor, id int64) (*model.Item, error) {
	args := m.Called(actor, id)
	it, _ := args.Get(0).(*model.Item)
	return it, args.Error(1)
}

func (m *mockService) OpenImage(ctx context.Context, actor shared.Actor, id int64) (*model.Image, error) {
	args := m.Called(actor, id)
	img, _ := args.Get(0).(*model.Image)
	return img, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, actor shared.Actor, id int64) (*model.DeleteItemResult, error) {
	args := m.Called(actor, id)
	res, _ := args.Get(0).(*model.DeleteItemResult)
	return res, args.Error(1)
}

func (m *mockService) Move(ctx context.Context, actor shared.Actor, id, target int64, opts service.MoveOptions) (*model.Item, error) {
	args := m.Called(actor, id, target, opts)
	it, _ := args.Get(0).(*model.Item)
	return it, args.Error(1)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Meta *struct {
		Skip  int   `json:"skip"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"meta"`
}

var alice = shared.Actor{UserID: uuid.New(), Role: shared.RoleUser}

func setupRouter(svc service.ServiceInterface, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if authenticated {
			middleware.SetActor(c, alice)
		}
		c.Next()
	})

	h := NewItemHandler(svc, 1<<20)
	r.GET("/items", h.List)
	r.POST("/items/upload", h.Upload)
	r.GET("/items/:id", h.Get)
	r.PUT("/items/:id", h.Update)
	r.PATCH("/items/:id", h.PatchMetadata)
	r.DELETE("/items/:id", h.Delete)
	r.GET("/items/:id/image", h.Image)
	r.GET("/items/:id/related", h.Related)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "coin.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	svc := new(mockService)
	svc.On("Upload", alice, mock.MatchedBy(func(req model.UploadRequest) bool {
		return req.File != nil &&
			req.File.Filename == "coin.png" &&
			string(req.File.Data) == "bytes" &&
			*req.Metadata.Title == "Denarius" &&
			req.Metadata.CollectionID.String() == "7" &&
			*req.Metadata.Description == "" &&
			req.Metadata.AltText == nil
	})).Return(&model.Item{ID: 42, Title: "Denarius"}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"title":         "Denarius",
		"collection_id": "7",
		"description":   "",
	}, []byte("bytes"))
	req := httptest.NewRequest(http.MethodPost, "/items/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/v1/items/42", w.Header().Get("Location"))
	assert.True(t, decode(t, w).Success)
	svc.AssertExpectations(t)
}

func TestUpload_NotMultipart(t *testing.T) {
	svc := new(mockService)
	req := httptest.NewRequest(http.MethodPost, "/items/upload", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUpload_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", validation.Errors{"title": errors.New("title is required")}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing collection", model.ErrCollectionNotFound, http.StatusNotFound, model.ErrCodeCollectionNotFound},
		{"denied collection", model.ErrCollectionDenied, http.StatusForbidden, "FORBIDDEN"},
		{"storage", errors.Join(model.ErrStorage, errors.New("timeout")), http.StatusBadGateway, "STORAGE_ERROR"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("Upload", alice, mock.Anything).Return(nil, tc.err)

			body, contentType := multipartBody(t, map[string]string{"title": "x"}, []byte("bytes"))
			req := httptest.NewRequest(http.MethodPost, "/items/upload", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			setupRouter(svc, true).ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestUpdate_WithoutFile(t *testing.T) {
	svc := new(mockService)
	svc.On("UpdateMetadata", alice, int64(5), mock.MatchedBy(func(req model.UpdateRequest) bool {
		return req.File == nil && *req.Metadata.Veneration == "high" && req.Metadata.Title == nil
	})).Return(&model.Item{ID: 5}, nil)

	body, contentType := multipartBody(t, map[string]string{"veneration": "high"}, nil)
	req := httptest.NewRequest(http.MethodPut, "/items/5", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestPatchMetadata_AcceptsNumericCollectionID(t *testing.T) {
	svc := new(mockService)
	svc.On("UpdateMetadata", alice, int64(5), mock.MatchedBy(func(req model.UpdateRequest) bool {
		return req.Metadata.CollectionID.String() == "12" && req.Metadata.MonitoryValue.String() == "99.5"
	})).Return(&model.Item{ID: 5, CollectionID: 12}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/items/5",
		strings.NewReader(`{"collection_id": 12, "monitory_value": "99.5"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestList(t *testing.T) {
	svc := new(mockService)
	cid := int64(3)
	svc.On("List", alice, model.ListItemsRequest{Skip: 10, Limit: 5, CollectionID: &cid}).
		Return(&model.ListItemsResult{Items: []model.Item{{ID: 1}}, Total: 11, Skip: 10, Limit: 5}, nil)

	req := httptest.NewRequest(http.MethodGet, "/items?skip=10&limit=5&collection_id=3", nil)
	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 11, env.Meta.Total)

	var page struct {
		Data  []model.Item `json:"data"`
		Count int64        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Data, 1)
	assert.EqualValues(t, 11, page.Count)
}

func TestList_BadQuery(t *testing.T) {
	w := httptest.NewRecorder()
	setupRouter(new(mockService), true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items?limit=many", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGet_ErrorMapping(t *testing.T) {
	svc := new(mockService)
	svc.On("Get", alice, int64(1)).Return(nil, model.ErrItemNotFound)
	svc.On("Get", alice, int64(2)).Return(nil, model.ErrForbidden)

	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrCodeItemNotFound, decode(t, w).Error.Code)

	w = httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/2", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImage(t *testing.T) {
	svc := new(mockService)
	svc.On("OpenImage", alice, int64(9)).Return(&model.Image{
		Item:        &model.Item{ID: 9, Filename: "coin.png"},
		Body:        io.NopCloser(strings.NewReader("pixels")),
		Size:        6,
		ContentType: "image/png",
	}, nil)
	svc.On("OpenImage", alice, int64(10)).Return(nil, model.ErrImageNotFound)

	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/9/image", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "coin.png")
	assert.Equal(t, "pixels", w.Body.String())

	w = httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/10/image", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrCodeImageNotFound, decode(t, w).Error.Code)
}

func TestRelated(t *testing.T) {
	svc := new(mockService)
	svc.On("Related", alice, int64(4), 6).Return([]model.Item{{ID: 1}, {ID: 2}}, nil)

	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/4/related?limit=6", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var items []model.Item
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &items))
	assert.Len(t, items, 2)
}

func TestDelete(t *testing.T) {
	svc := new(mockService)
	svc.On("Delete", alice, int64(3)).Return(&model.DeleteItemResult{ItemID: 3, PayloadRelease: "released"}, nil)

	w := httptest.NewRecorder()
	setupRouter(svc, true).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/items/3", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"payload_release":"released"`)
}

func TestRequiresAuthentication(t *testing.T) {
	svc := new(mockService)
	w := httptest.NewRecorder()
	setupRouter(svc, false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
