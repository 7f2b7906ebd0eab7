package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/server/media"
	"github.com/Eyad010/postfeed/internal/server/models"
)

const maxUploadMemory = 10 << 20

// maxMultipartBody caps a whole multipart request: every image at its limit
// plus room for the text fields.
var maxMultipartBody int64 = models.MaxPostImages*media.MaxImageSize + 1<<20

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.Errorf(common.ErrorValidation, "Request body must not exceed %d MB", maxMultipartBody>>20)
		}
		return common.NewError(common.ErrorValidation, "Invalid multipart form")
	}
	return nil
}

// openUploads opens every file sent under field. The returned closer must be
// called once the uploads are consumed.
func openUploads(r *http.Request, field string) ([]media.Upload, func(), error) {
	var (
		uploads []media.Upload
		files   []multipart.File
	)
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	if r.MultipartForm == nil {
		return nil, closeAll, nil
	}

	for _, fh := range r.MultipartForm.File[field] {
		if fh.Size > media.MaxImageSize {
			closeAll()
			return nil, func() {}, common.Errorf(common.ErrorValidation,
				"Image must not exceed %d MB", media.MaxImageSize>>20)
		}
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open upload: %w", err)
		}
		files = append(files, f)
		uploads = append(uploads, media.Upload{
			Body:        f,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
		})
	}

	return uploads, closeAll, nil
}
