package service

import (
	"context"
	"io"
	"strings"
	"testing"
)

// fakeStorage 记录 Put 调用次数的假对象存储
type fakeStorage struct {
	calls int
	key   string
}

func (f *fakeStorage) Put(_ context.Context, key, _ string, r io.Reader, _ int64) (string, error) {
	f.calls++
	f.key = key
	_, _ = io.Copy(io.Discard, r)
	return "https://cdn.example.com/" + key, nil
}

func newAttachmentService(storage ObjectStorage) *AttachmentService {
	return NewAttachmentService(&Service{Storage: storage}, nil)
}

func TestUploadTopicImage_OversizeRejectedBeforeStorage(t *testing.T) {
	fs := &fakeStorage{}
	svc := newAttachmentService(fs)

	up := Upload{
		Filename:    "big.jpg",
		Size:        6 * 1024 * 1024,
		ContentType: "image/jpeg",
		Reader:      strings.NewReader("x"),
	}
	_, err := svc.UploadTopicImage(context.Background(), Caller{UserID: 7}, 9, up)
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fs.calls != 0 {
		t.Fatalf("storage must not be called, got %d calls", fs.calls)
	}
}

func TestUploadTopicImage_BadMimeRejected(t *testing.T) {
	fs := &fakeStorage{}
	svc := newAttachmentService(fs)

	up := Upload{
		Filename:    "doc.pdf",
		Size:        1024,
		ContentType: "application/pdf",
		Reader:      strings.NewReader("x"),
	}
	_, err := svc.UploadTopicImage(context.Background(), Caller{UserID: 7}, 9, up)
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fs.calls != 0 {
		t.Fatalf("storage must not be called, got %d calls", fs.calls)
	}
}

func TestUploadTopicImage_OK(t *testing.T) {
	fs := &fakeStorage{}
	svc := newAttachmentService(fs)

	up := Upload{
		Filename:    "photo.png",
		Size:        1024,
		ContentType: "image/png; charset=binary",
		Reader:      strings.NewReader("pngbytes"),
	}
	res, err := svc.UploadTopicImage(context.Background(), Caller{UserID: 7}, 9, up)
	if err != nil {
		t.Fatalf("UploadTopicImage: %v", err)
	}
	if fs.calls != 1 {
		t.Fatalf("expected 1 storage call, got %d", fs.calls)
	}
	if !strings.HasPrefix(fs.key, "9/7/") || !strings.HasSuffix(fs.key, ".png") {
		t.Fatalf("unexpected key: %s", fs.key)
	}
	if res.URL == "" || res.Size != 1024 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUploadTopicVoice_LimitsAndTypes(t *testing.T) {
	fs := &fakeStorage{}
	svc := newAttachmentService(fs)

	// 超过 10MB
	_, err := svc.UploadTopicVoice(context.Background(), Caller{UserID: 7}, 9, Upload{
		Size: 11 * 1024 * 1024, ContentType: "audio/webm", Reader: strings.NewReader("x"),
	})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// 图片在语音限制（10MB）内但类型不对
	_, err = svc.UploadTopicVoice(context.Background(), Caller{UserID: 7}, 9, Upload{
		Size: 1024, ContentType: "image/png", Reader: strings.NewReader("x"),
	})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fs.calls != 0 {
		t.Fatalf("storage must not be called, got %d calls", fs.calls)
	}

	res, err := svc.UploadTopicVoice(context.Background(), Caller{UserID: 7}, 9, Upload{
		Size: 1024, ContentType: "audio/webm", Reader: strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("UploadTopicVoice: %v", err)
	}
	if !strings.HasSuffix(res.Key, ".webm") {
		t.Fatalf("unexpected key: %s", res.Key)
	}
}

func TestDownsampleWaveform(t *testing.T) {
	in := make([]int, 200)
	for i := range in {
		in[i] = i
	}
	out := downsampleWaveform(in, 64)
	if len(out) != 64 {
		t.Fatalf("expected 64 samples, got %d", len(out))
	}

	short := []int{1, 2, 3}
	if got := downsampleWaveform(short, 64); len(got) != 3 {
		t.Fatalf("short input must pass through, got %d", len(got))
	}
}
