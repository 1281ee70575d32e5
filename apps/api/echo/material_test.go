package echoapi_test

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/conectaebd/backend/apps/api/echo"
	"github.com/conectaebd/backend/core/material"
)

type part struct {
	name, filename, contentType string
	data                        []byte
}

// newUploadRequest builds a multipart request out of the form fields & the file parts.
func newUploadRequest(t *testing.T, token string, fields map[string]string, parts ...part) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.name, p.filename))
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/materials", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func pngImage(t *testing.T, width, height int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func Test_materialApi_upload(t *testing.T) {
	f := setup(t)
	masterToken := f.token(t, f.master)
	pdf := part{name: "file", filename: "lição 1.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")}

	tests := []struct {
		name     string
		token    string
		fields   map[string]string
		parts    []part
		wantCode int
		wantData string
	}{
		{
			name:     "standard user",
			token:    f.token(t, f.standard),
			fields:   map[string]string{"title": "Revista"},
			parts:    []part{pdf},
			wantCode: http.StatusForbidden,
			wantData: `{"error": "permission denied"}`,
		},
		{
			name:     "no file",
			token:    masterToken,
			fields:   map[string]string{"title": "Revista"},
			wantCode: http.StatusBadRequest,
			wantData: `{"file": "no file uploaded"}`,
		},
		{
			name:     "church id is not a number",
			token:    masterToken,
			fields:   map[string]string{"title": "Revista", "church_id": "sede"},
			parts:    []part{pdf},
			wantCode: http.StatusBadRequest,
			wantData: `{"church_id": "church_id must be a number"}`,
		},
		{
			name:     "unknown church",
			token:    masterToken,
			fields:   map[string]string{"title": "Revista", "church_id": "999"},
			parts:    []part{pdf},
			wantCode: http.StatusBadRequest,
			wantData: `{"church_id": "church does not exist"}`,
		},
		{
			name:     "broken cover",
			token:    masterToken,
			fields:   map[string]string{"title": "Revista"},
			parts:    []part{pdf, {name: "cover", filename: "capa.png", contentType: "image/png", data: []byte("nope")}},
			wantCode: http.StatusBadRequest,
			wantData: `{"cover": "cover is not a valid image"}`,
		},
		{
			name:     "too large",
			token:    masterToken,
			fields:   map[string]string{"title": "Revista"},
			parts:    []part{{name: "file", filename: "big.bin", contentType: "application/octet-stream", data: make([]byte, f.conf.Server.MaxUploadSize+1)}},
			wantCode: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, tt.token, tt.fields, tt.parts...)
			f.app.ServeHTTP(rec, req)
			want := httpTest{wantCode: tt.wantCode}
			if tt.wantData != "" {
				want.wantData = []byte(tt.wantData)
			}
			checkCodeAndData(t, want, rec)
		})
	}
	assert.Equal(t, 0, f.storage.Len(), "failed uploads must not leave objects behind")

	cover := part{name: "cover", filename: "capa.png", contentType: "image/png", data: pngImage(t, 900, 300)}
	req, rec := newUploadRequest(t, masterToken, map[string]string{"title": " Revista 1T ", "church_id": strconv.Itoa(f.churchA)}, pdf, cover)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created SuccessResponse
	decode(t, rec, &created)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, 2, f.storage.Len())

	var mats []material.Material
	f.get(t, "/api/materials", f.token(t, f.standard), &mats)
	require.Len(t, mats, 1)
	mat := mats[0]
	assert.Equal(t, "Revista 1T", mat.Title)
	assert.Equal(t, "application/pdf", mat.FileType)
	assert.Equal(t, "Sede", mat.ChurchName.String)
	assert.True(t, strings.HasPrefix(mat.FilePath, f.conf.Storage.PublicURL+"/"))
	assert.True(t, strings.HasSuffix(mat.FilePath, "-li_o_1.pdf"), mat.FilePath)

	key, err := f.storage.KeyFromURL(mat.CoverPath.String)
	require.NoError(t, err)
	obj, ok := f.storage.Get(key)
	require.True(t, ok)
	img, err := imaging.Decode(bytes.NewReader(obj.Data))
	require.NoError(t, err)
	assert.Equal(t, f.conf.Storage.CoverMaxWidth, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	f.get(t, "/api/materials", f.token(t, f.stranger), &mats)
	assert.Empty(t, mats)
}

func Test_materialApi_storageDown(t *testing.T) {
	f := setup(t)
	f.storage.FailPut = true
	pdf := part{name: "file", filename: "a.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")}

	// the upstream message is only exposed in debug mode
	req, rec := newUploadRequest(t, f.token(t, f.master), map[string]string{"title": "Revista"}, pdf)
	f.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: []byte(`{"error": "Internal Server Error"}`),
	}, rec)
	assert.Equal(t, 0, f.storage.Len())

	var mats []material.Material
	f.get(t, "/api/materials", f.token(t, f.master), &mats)
	assert.Empty(t, mats)
}

func Test_materialApi_delete(t *testing.T) {
	f := setup(t)
	masterToken := f.token(t, f.master)
	pdf := part{name: "file", filename: "a.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")}

	for i := 0; i < 2; i++ {
		req, rec := newUploadRequest(t, masterToken, map[string]string{"title": "Material " + strconv.Itoa(i)}, pdf)
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	require.Equal(t, 2, f.storage.Len())

	f.run(t, []httpTest{
		{
			name:     "standard delete",
			method:   http.MethodDelete,
			path:     "/api/materials/1",
			token:    f.token(t, f.standard),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/materials/1",
			token:    masterToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, okResp),
		},
		{
			name:     "delete again",
			method:   http.MethodDelete,
			path:     "/api/materials/1",
			token:    masterToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	})
	assert.Equal(t, 1, f.storage.Len())

	f.storage.FailRemove = true
	req, rec := newAuthRequest(http.MethodDelete, "/api/materials/2", masterToken)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp DeleteMaterialResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.StorageWarning)

	var mats []material.Material
	f.get(t, "/api/materials", masterToken, &mats)
	assert.Empty(t, mats)
}
