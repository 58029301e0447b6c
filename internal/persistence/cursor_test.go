package persistence

import (
	"testing"
	"time"

	"example.com/hundreddays/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := &domain.Cursor{
		Key: time.Date(2026, time.March, 7, 12, 30, 45, 123456789, time.UTC),
		ID:  "ci-42",
	}

	token := EncodeCursor(cursor)
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	decoded, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.Key.Equal(cursor.Key) {
		t.Fatalf("timestamp mismatch: %v vs %v", decoded.Key, cursor.Key)
	}
	if decoded.ID != cursor.ID {
		t.Fatalf("id mismatch: %q vs %q", decoded.ID, cursor.ID)
	}
}

func TestDecodeCursorEmptyToken(t *testing.T) {
	decoded, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil cursor got %+v", decoded)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if _, err := DecodeCursor("not-base64!!"); err == nil {
		t.Fatal("expected error for invalid token")
	}
}

func TestEncodeCursorNil(t *testing.T) {
	if token := EncodeCursor(nil); token != "" {
		t.Fatalf("expected empty token for nil cursor got %q", token)
	}
}
