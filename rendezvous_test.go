package conduit

import (
	"bytes"
	"testing"
)

func TestRendezvousRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := SendRendezvous(&buf, "example-segment", 1<<20); err != nil {
		t.Fatalf("SendRendezvous: %v", err)
	}

	name, size, err := ReceiveRendezvous(&buf)
	if err != nil {
		t.Fatalf("ReceiveRendezvous: %v", err)
	}
	if name != "example-segment" {
		t.Fatalf("name = %q, want %q", name, "example-segment")
	}
	if size != 1<<20 {
		t.Fatalf("size = %d, want %d", size, 1<<20)
	}
}

func TestSendRendezvousRejectsInvalidName(t *testing.T) {
	var buf bytes.Buffer
	if err := SendRendezvous(&buf, "", 128); err == nil {
		t.Fatal("expected an error for an empty segment name")
	}
}

func TestReceiveRendezvousRejectsTruncatedInput(t *testing.T) {
	_, _, err := ReceiveRendezvous(bytes.NewReader([]byte{1, 2, 3}))
	if err == nil {
		t.Fatal("expected an error reading a truncated rendezvous message")
	}
}
