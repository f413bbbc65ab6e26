package service

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

const (
	MediaURLPrefix  = "/api/media/"
	AvatarURLPrefix = "/api/avatars/"

	avatarMaxBytes = 5 << 20
)

var mediaMIMEs = setOf(
	"image/jpeg", "image/png", "image/gif", "image/webp",
	"video/mp4", "video/webm", "video/quicktime",
	"audio/mpeg", "audio/mp3", "audio/wav", "audio/webm", "audio/ogg",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
)

var avatarMIMEs = setOf("image/jpeg", "image/png", "image/gif", "image/webp")

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// UploadService stores uploaded files on local disk under the media and
// avatar directories, which the HTTP layer serves statically.
type UploadService struct {
	mediaDir  string
	avatarDir string
	maxBytes  int64
	now       func() time.Time
}

func NewUploadService(mediaDir, avatarDir string, maxBytes int64) *UploadService {
	return &UploadService{mediaDir: mediaDir, avatarDir: avatarDir, maxBytes: maxBytes, now: time.Now}
}

func (s *UploadService) EnsureDirs() error {
	for _, dir := range []string{s.mediaDir, s.avatarDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (s *UploadService) MediaDir() string  { return s.mediaDir }
func (s *UploadService) AvatarDir() string { return s.avatarDir }
func (s *UploadService) MaxBytes() int64   { return s.maxBytes }

// SaveMedia validates and stores a message attachment. The stored name is
// <unix-millis>-<uuid><ext>; the declared MIME type decides contentType.
func (s *UploadService) SaveMedia(fh *multipart.FileHeader) (*model.UploadResult, error) {
	if fh == nil {
		return nil, invalid("file", "no file uploaded")
	}
	mime := declaredMIME(fh)
	if !mediaMIMEs[mime] {
		return nil, invalid("file", "file type "+mime+" is not allowed")
	}
	if fh.Size > s.maxBytes {
		return nil, invalid("file", fmt.Sprintf("file is %s, limit is %s", humanize.IBytes(uint64(fh.Size)), humanize.IBytes(uint64(s.maxBytes))))
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), safeExt(fh.Filename))
	if err := writeUpload(fh, filepath.Join(s.mediaDir, name)); err != nil {
		return nil, &StorageError{Op: "save media", Err: err}
	}

	return &model.UploadResult{
		Success:      true,
		FileURL:      MediaURLPrefix + name,
		ContentType:  model.ContentTypeFromMIME(mime),
		OriginalName: fh.Filename,
		MimeType:     mime,
		Size:         fh.Size,
	}, nil
}

// SaveAvatar stores an avatar image under a two-character shard of the user
// id and returns its public URL.
func (s *UploadService) SaveAvatar(userID string, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", invalid("avatar", "no file uploaded")
	}
	mime := declaredMIME(fh)
	if !avatarMIMEs[mime] {
		return "", invalid("avatar", "use JPEG, PNG, GIF or WebP")
	}
	if fh.Size > avatarMaxBytes {
		return "", invalid("avatar", "avatar must be at most "+humanize.IBytes(avatarMaxBytes))
	}
	if len(userID) < 2 {
		return "", invalid("id", "must be a valid id")
	}

	shard := userID[:2]
	name := fmt.Sprintf("%s-%d%s", userID, s.now().UnixMilli(), safeExt(fh.Filename))
	dir := filepath.Join(s.avatarDir, shard)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &StorageError{Op: "save avatar", Err: err}
	}
	if err := writeUpload(fh, filepath.Join(dir, name)); err != nil {
		return "", &StorageError{Op: "save avatar", Err: err}
	}
	return AvatarURLPrefix + shard + "/" + name, nil
}

// RemoveAvatar deletes the file behind an avatar URL. URLs outside the avatar
// prefix and already-missing files are ignored.
func (s *UploadService) RemoveAvatar(url string) error {
	if !strings.HasPrefix(url, AvatarURLPrefix) {
		return nil
	}
	rel := filepath.Clean("/" + strings.TrimPrefix(url, AvatarURLPrefix))
	err := os.Remove(filepath.Join(s.avatarDir, rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func declaredMIME(fh *multipart.FileHeader) string {
	mime := fh.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// safeExt keeps a short alphanumeric extension from the client file name.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

func writeUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
