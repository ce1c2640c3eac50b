package service

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultUploadMaxBytes bounds uploaded submission files when no limit is configured.
const DefaultUploadMaxBytes int64 = 256 * 1024

var (
	// ErrUploadTooLarge indicates the file exceeded the configured limit.
	ErrUploadTooLarge = errors.New("submission file exceeds maximum allowed size")
	// ErrUnsupportedUpload indicates the file is not plain text.
	ErrUnsupportedUpload = errors.New("submission file must be plain text")
)

// SubmissionReader turns an uploaded file into submission text.
type SubmissionReader struct {
	maxBytes int64
}

// NewSubmissionReader constructs a reader bounded by maxBytes.
func NewSubmissionReader(maxBytes int64) *SubmissionReader {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	return &SubmissionReader{maxBytes: maxBytes}
}

// MaxBytes reports the configured size limit.
func (r *SubmissionReader) MaxBytes() int64 {
	return r.maxBytes
}

// ReadFile opens a multipart file header and reads it as submission text.
func (r *SubmissionReader) ReadFile(file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", ErrUnsupportedUpload
	}
	if file.Size > r.maxBytes {
		return "", ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return "", err
	}
	defer handle.Close()

	return r.Read(handle)
}

// Read consumes the reader and returns its content when it is text within
// the size limit. The bytes are returned unmodified.
func (r *SubmissionReader) Read(source io.Reader) (string, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(source, r.maxBytes+1)); err != nil {
		return "", err
	}
	if int64(buf.Len()) > r.maxBytes {
		return "", ErrUploadTooLarge
	}

	// Blank content is left to the empty submission check.
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return buf.String(), nil
	}

	detected := strings.ToLower(mimetype.Detect(buf.Bytes()).String())
	if !strings.HasPrefix(detected, "text/") || !utf8.Valid(buf.Bytes()) {
		return "", ErrUnsupportedUpload
	}

	return buf.String(), nil
}
