package sim

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/usbstream/pkg"
)

func TestRing_WriteRead(t *testing.T) {
	r := newRing(8)

	if n := r.Write([]byte{1, 2, 3, 4, 5}); n != 5 {
		t.Fatalf("Write() = %d, want 5", n)
	}
	got := make([]byte, 3)
	if n := r.Read(got); n != 3 || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("Read() = %d %v", n, got)
	}

	// Wraps around the end of the backing array.
	if n := r.Write([]byte{6, 7, 8, 9, 10, 11, 12}); n != 6 {
		t.Fatalf("Write() = %d, want 6 (ring full)", n)
	}
	if r.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", r.Len())
	}
	all := make([]byte, 16)
	n := r.Read(all)
	if want := []byte{4, 5, 6, 7, 8, 9, 10, 11}; !bytes.Equal(all[:n], want) {
		t.Errorf("Read() = %v, want %v", all[:n], want)
	}
}

func TestRing_Overwrite(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		writes  [][]byte
		dropped int
		want    []byte
	}{
		{"fits", 4, [][]byte{{1, 2}}, 0, []byte{1, 2}},
		{"drops oldest", 4, [][]byte{{1, 2, 3}, {4, 5}}, 1, []byte{2, 3, 4, 5}},
		{"larger than ring", 3, [][]byte{{1, 2, 3, 4, 5}}, 2, []byte{3, 4, 5}},
		{"zero capacity", 0, [][]byte{{1, 2}}, 2, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRing(tt.size)
			dropped := 0
			for _, w := range tt.writes {
				dropped += r.Overwrite(w)
			}
			if dropped != tt.dropped {
				t.Errorf("dropped = %d, want %d", dropped, tt.dropped)
			}
			got := make([]byte, 16)
			n := r.Read(got)
			if !bytes.Equal(got[:n], tt.want) {
				t.Errorf("contents = %v, want %v", got[:n], tt.want)
			}
		})
	}
}

func TestRing_ReadFullTimeout(t *testing.T) {
	r := newRing(16)
	r.Write([]byte{1, 2})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	buf := make([]byte, 4)
	n, err := r.ReadFull(ctx, buf)
	if !errors.Is(err, pkg.ErrTimeout) {
		t.Fatalf("ReadFull() error = %v, want ErrTimeout", err)
	}
	if n != 2 {
		t.Errorf("ReadFull() = %d, want partial 2", n)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("ReadFull() blocked %v past its deadline", elapsed)
	}
}

func TestRing_ReadFullWakesOnWrite(t *testing.T) {
	r := newRing(16)
	done := make(chan int)
	go func() {
		buf := make([]byte, 4)
		n, _ := r.ReadFull(context.Background(), buf)
		done <- n
	}()

	r.Write([]byte{1, 2})
	time.Sleep(5 * time.Millisecond)
	r.Write([]byte{3, 4})

	select {
	case n := <-done:
		if n != 4 {
			t.Errorf("ReadFull() = %d, want 4", n)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadFull() did not wake on write")
	}
}

func TestRing_WriteAllBlocksUntilSpace(t *testing.T) {
	r := newRing(4)
	done := make(chan error)
	go func() {
		_, err := r.WriteAll(context.Background(), []byte{1, 2, 3, 4, 5, 6})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("WriteAll() returned before space was available")
	case <-time.After(10 * time.Millisecond):
	}

	r.Read(make([]byte, 2))
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WriteAll() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WriteAll() did not wake on read")
	}
}

func TestRing_CloseWakesWaiters(t *testing.T) {
	r := newRing(4)
	done := make(chan error)
	go func() {
		_, err := r.ReadFull(context.Background(), make([]byte, 2))
		done <- err
	}()

	time.Sleep(5 * time.Millisecond)
	r.Close()
	r.Close() // idempotent

	select {
	case err := <-done:
		if !errors.Is(err, pkg.ErrNotRunning) {
			t.Errorf("ReadFull() error = %v, want ErrNotRunning", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close() did not wake reader")
	}
}
