package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shares-backend/internal/pkg/apperrors"
)

func TestSupabaseClientSignsUpload(t *testing.T) {
	var gotPath, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "/object/upload/sign/docs/a.pdf?token=abc"})
	}))
	defer srv.Close()

	c := &SupabaseClient{BaseURL: srv.URL, SecretKey: "service-role"}
	url, err := c.CreateSignedUploadURL(context.Background(), "docs", "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/upload/sign/docs/a.pdf", gotPath)
	assert.Equal(t, "service-role", gotKey)
	assert.Equal(t, "Bearer service-role", gotAuth)
	assert.Equal(t, srv.URL+"/storage/v1/object/upload/sign/docs/a.pdf?token=abc", url)
}

func TestSupabaseClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := (&SupabaseClient{BaseURL: srv.URL, SecretKey: "k"}).CreateSignedUploadURL(context.Background(), "docs", "a.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")

	_, err = (&SupabaseClient{}).CreateSignedUploadURL(context.Background(), "docs", "a.pdf")
	assert.Error(t, err)
}

type fakeStorage struct {
	bucket, path string
	err          error
}

func (f *fakeStorage) CreateSignedUploadURL(_ context.Context, bucket, objectPath string) (string, error) {
	f.bucket, f.path = bucket, objectPath
	return "https://signed.example/" + objectPath, f.err
}

func TestPaymentDocumentURL(t *testing.T) {
	storage := &fakeStorage{}
	svc := &Service{
		Client:      storage,
		SupabaseURL: "https://proj.supabase.co/",
		Bucket:      "payment-docs",
		Now:         func() time.Time { return time.UnixMilli(1700000000000) },
	}
	id := uuid.New()

	res, err := svc.PaymentDocumentURL(context.Background(), id, "../../bank receipt (1).PDF")
	require.NoError(t, err)
	wantPath := "payment-docs/" + id.String() + "/1700000000000-bank_receipt_1_.PDF"
	assert.Equal(t, wantPath, res.Path)
	assert.Equal(t, "payment-docs", storage.bucket)
	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/public/payment-docs/"+wantPath, res.PublicURL)
	assert.True(t, strings.HasPrefix(res.UploadURL, "https://signed.example/"))
}

func TestPaymentDocumentURLValidation(t *testing.T) {
	svc := &Service{Client: &fakeStorage{}, Bucket: "payment-docs"}
	for _, name := range []string{"", "   ", "script.exe"} {
		_, err := svc.PaymentDocumentURL(context.Background(), uuid.New(), name)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), name)
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "receipt.pdf", SanitizeFileName(`C:\Users\me\receipt.pdf`))
	assert.Equal(t, "my_file.png", SanitizeFileName("my file.png"))
	assert.Equal(t, "", SanitizeFileName(".."))
}
