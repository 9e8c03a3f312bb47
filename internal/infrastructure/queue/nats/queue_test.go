package nats

import (
	"strings"
	"testing"
	"time"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
)

func TestUploadedEventRoundTrip(t *testing.T) {
	uploaded := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	event := domain.UploadedEvent{
		DocumentID: "doc-42",
		MediaType:  "application/pdf",
		UploadedAt: uploaded,
	}

	payload, err := encodeUploadedEvent(event)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := decodeUploadedEvent(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.DocumentID != event.DocumentID {
		t.Fatalf("document id = %q, want %q", decoded.DocumentID, event.DocumentID)
	}
	if decoded.MediaType != event.MediaType {
		t.Fatalf("media type = %q, want %q", decoded.MediaType, event.MediaType)
	}
	if !decoded.UploadedAt.Equal(uploaded) {
		t.Fatalf("uploaded at = %v, want %v", decoded.UploadedAt, uploaded)
	}
}

func TestEncodeUploadedEventRejectsEmptyID(t *testing.T) {
	if _, err := encodeUploadedEvent(domain.UploadedEvent{MediaType: "text/plain"}); err == nil {
		t.Fatal("expected error for empty document id")
	}
}

func TestDecodeUploadedEventRejectsBadPayload(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "doc-42"},
		{name: "missing id", payload: `{"media_type":"text/plain"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeUploadedEvent([]byte(tc.payload))
			if err == nil {
				t.Fatal("expected decode error")
			}
			if !strings.Contains(err.Error(), "decode upload event") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
