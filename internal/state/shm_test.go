package state

import (
	"os"
	"testing"
)

func TestWriteReadBlobRoundTrip(t *testing.T) {
	pid := os.Getpid()
	data := []byte("re-exec state blob contents")

	if err := WriteBlob(pid, data); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	got, err := ReadBlob(pid)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("ReadBlob = %q, want %q", got, data)
	}

	if _, err := os.Stat(shmPath(pid)); !os.IsNotExist(err) {
		t.Fatalf("ReadBlob should have unlinked the blob, stat err=%v", err)
	}
}

func TestReadBlobMissingIsError(t *testing.T) {
	if _, err := ReadBlob(-1); err == nil {
		t.Fatalf("ReadBlob on a nonexistent pid should return an error")
	}
}
