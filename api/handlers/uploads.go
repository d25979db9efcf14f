package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"

	"fstt-incidents/config"
)

var errUploadRejected = errors.New("upload rejected")

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// saveUpload stores an incident photo under the uploads directory and
// returns the public path. The file is typed by sniffing its first
// bytes, never by trusting the client's filename or Content-Type.
func saveUpload(cfg *config.AppConfig, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size <= 0 || header.Size > cfg.Uploads.MaxBytes {
		return "", errUploadRejected
	}
	if header.Filename != "" && !isImageFilename(header.Filename) {
		return "", errUploadRejected
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	ext, ok := allowedImageTypes[http.DetectContentType(head[:n])]
	if !ok {
		return "", errUploadRejected
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.Must(uuid.NewV4()).String() + ext
	dst, err := os.OpenFile(filepath.Join(cfg.Uploads.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, io.LimitReader(file, cfg.Uploads.MaxBytes)); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return "/uploads/" + name, nil
}

func isImageFilename(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}
