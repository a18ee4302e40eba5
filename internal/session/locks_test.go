package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyedLockerSerializesSameKey(t *testing.T) {
	k := newKeyedLocker()

	unlock, err := k.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	acquired := make(chan func(), 1)
	go func() {
		u, err := k.Lock(context.Background(), "a")
		if err == nil {
			acquired <- u
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the same key")
	case <-time.After(30 * time.Millisecond):
	}

	unlock()
	select {
	case u := <-acquired:
		u()
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the key")
	}

	if n := k.size(); n != 0 {
		t.Fatalf("expected no retained keys, got %d", n)
	}
}

func TestKeyedLockerIndependentKeys(t *testing.T) {
	k := newKeyedLocker()

	unlockA, err := k.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock a failed: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := k.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock b blocked on a: %v", err)
	}
	unlockB()
}

func TestKeyedLockerContextCancel(t *testing.T) {
	k := newKeyedLocker()

	unlock, err := k.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := k.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	unlock()
	unlock()
	if n := k.size(); n != 0 {
		t.Fatalf("expected no retained keys, got %d", n)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"RECORDING", "PAUSED", true},
		{"RECORDING", "PROCESSING", true},
		{"PAUSED", "RECORDING", true},
		{"PAUSED", "PROCESSING", true},
		{"PROCESSING", "COMPLETED", true},
		{"PROCESSING", "FAILED", true},
		{"RECORDING", "COMPLETED", false},
		{"PROCESSING", "RECORDING", false},
		{"COMPLETED", "RECORDING", false},
		{"FAILED", "PROCESSING", false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !IsTerminal("COMPLETED") || !IsTerminal("FAILED") || IsTerminal("PAUSED") {
		t.Fatal("unexpected terminal classification")
	}
}
