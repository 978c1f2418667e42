package ledger

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

// testLedger exercises the Ledger contract against any implementation.
func testLedger(t *testing.T, l Ledger) {
	ctx := context.Background()

	alice := NewUser("alice", "alice@example.com", "Alice")
	alice.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := l.Put(ctx, alice); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := l.User(ctx, "alice")
	if err != nil {
		t.Fatalf("User: %v", err)
	}
	if diff := cmp.Diff(alice, got); diff != "" {
		t.Errorf("User mismatch (-want +got):\n%s", diff)
	}

	if _, err := l.User(ctx, "nobody"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("User(nobody) err = %v, want ErrUnknownUser", err)
	}

	// Pending accounts cannot spend.
	if _, err := l.Deduct(ctx, "alice", 1); !errors.Is(err, ErrNotApproved) {
		t.Errorf("Deduct while pending err = %v, want ErrNotApproved", err)
	}

	if err := l.SetStatus(ctx, "alice", StatusApproved); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := l.SetStatus(ctx, "alice", Status("banned")); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("SetStatus(banned) err = %v, want ErrInvalidStatus", err)
	}
	if err := l.SetStatus(ctx, "nobody", StatusApproved); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("SetStatus(nobody) err = %v, want ErrUnknownUser", err)
	}

	left, err := l.Deduct(ctx, "alice", 2)
	if err != nil || left != SignupCredits-2 {
		t.Fatalf("Deduct = %d, %v; want %d", left, err, SignupCredits-2)
	}

	left, err = l.Deduct(ctx, "alice", 10)
	if !errors.Is(err, ErrInsufficientCredits) || left != SignupCredits-2 {
		t.Errorf("overdraft Deduct = %d, %v; want %d, ErrInsufficientCredits", left, err, SignupCredits-2)
	}

	if _, err := l.Deduct(ctx, "alice", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Deduct(0) err = %v, want ErrInvalidAmount", err)
	}

	total, err := l.Grant(ctx, "alice", 7)
	if err != nil || total != SignupCredits-2+7 {
		t.Errorf("Grant = %d, %v; want %d", total, err, SignupCredits-2+7)
	}
	if _, err := l.Grant(ctx, "nobody", 1); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Grant(nobody) err = %v, want ErrUnknownUser", err)
	}

	if err := l.Put(ctx, NewUser("bob", "bob@example.com", "Bob")); err != nil {
		t.Fatal(err)
	}
	users, err := l.Users(ctx)
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 2 || users[0].ID != "alice" || users[1].ID != "bob" {
		t.Errorf("Users = %+v, want alice and bob", users)
	}

	admin := NewUser("root", "root@example.com", "Root")
	admin.Role = RoleAdmin
	if err := l.Put(ctx, admin); err != nil {
		t.Fatal(err)
	}
	if left, err := l.Deduct(ctx, "root", 3); err != nil || left != SignupCredits {
		t.Errorf("admin Deduct = %d, %v; want %d, nil", left, err, SignupCredits)
	}
}

// testConcurrentDeduct verifies that concurrent exports never overdraw.
func testConcurrentDeduct(t *testing.T, l Ledger) {
	ctx := context.Background()
	u := NewUser("carol", "carol@example.com", "Carol")
	u.Status = StatusApproved
	u.Credits = 10
	if err := l.Put(ctx, u); err != nil {
		t.Fatal(err)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Deduct(ctx, "carol", 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Errorf("successful deductions = %d, want 10", ok)
	}
	if got, _ := l.User(ctx, "carol"); got.Credits != 0 {
		t.Errorf("balance = %d, want 0", got.Credits)
	}
}

func TestMemory(t *testing.T) {
	testLedger(t, NewMemory())
}

func TestMemory_ConcurrentDeduct(t *testing.T) {
	testConcurrentDeduct(t, NewMemory())
}

func TestMemory_PutValidates(t *testing.T) {
	badStatus := NewUser("x", "", "")
	badStatus.Status = "unknown"
	badRole := NewUser("y", "", "")
	badRole.Role = "superuser"

	tests := []struct {
		name string
		u    User
		want error
	}{
		{"status", badStatus, ErrInvalidStatus},
		{"role", badRole, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewMemory().Put(context.Background(), tt.u); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

// newTestRedis connects to HALFTONE_REDIS_ADDR or skips the test.
func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("HALFTONE_REDIS_ADDR")
	if addr == "" {
		t.Skip("HALFTONE_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	prefix := "halftone-test:" + t.Name() + ":"
	cleanup := func() {
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		_ = client.Close()
	})
	return NewRedis(client, prefix)
}

func TestRedis(t *testing.T) {
	testLedger(t, newTestRedis(t))
}

func TestRedis_ConcurrentDeduct(t *testing.T) {
	testConcurrentDeduct(t, newTestRedis(t))
}

func TestScriptResult(t *testing.T) {
	tests := []struct {
		in      []int64
		want    int
		wantErr error
	}{
		{[]int64{codeOK, 4}, 4, nil},
		{[]int64{codeUnknown, 0}, 0, ErrUnknownUser},
		{[]int64{codeNotApproved, 3}, 3, ErrNotApproved},
		{[]int64{codeInsufficient, 1}, 1, ErrInsufficientCredits},
	}
	for _, tt := range tests {
		got, err := scriptResult(tt.in)
		if got != tt.want || !errors.Is(err, tt.wantErr) {
			t.Errorf("scriptResult(%v) = %d, %v; want %d, %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
	if _, err := scriptResult([]int64{1}); err == nil {
		t.Error("short result should fail")
	}
}
