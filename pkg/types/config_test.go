package types

import (
	"errors"
	"testing"
	"time"
)

func TestLockOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    LockOptions
		wantErr error
	}{
		{
			name:    "defaults are valid",
			opts:    LockOptions{}.WithDefaults(),
			wantErr: nil,
		},
		{
			name:    "zero retry returns ErrLockRetryInvalid",
			opts:    LockOptions{RetryInterval: 0, Timeout: time.Second, StaleAfter: time.Second},
			wantErr: ErrLockRetryInvalid,
		},
		{
			name:    "negative timeout returns ErrLockTimeoutInvalid",
			opts:    LockOptions{RetryInterval: time.Millisecond, Timeout: -1, StaleAfter: time.Second},
			wantErr: ErrLockTimeoutInvalid,
		},
		{
			name:    "negative stale returns ErrLockStaleInvalid",
			opts:    LockOptions{RetryInterval: time.Millisecond, Timeout: time.Second, StaleAfter: -time.Second},
			wantErr: ErrLockStaleInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{Lock: LockOptions{Timeout: 3 * time.Second}}.WithDefaults()

	if o.Lock.Timeout != 3*time.Second {
		t.Fatalf("explicit timeout overwritten: %v", o.Lock.Timeout)
	}
	if o.Lock.RetryInterval != DefaultLockRetryInterval {
		t.Fatalf("expected default retry interval, got %v", o.Lock.RetryInterval)
	}
	if o.Lock.StaleAfter != DefaultLockStaleAfter {
		t.Fatalf("expected default stale threshold, got %v", o.Lock.StaleAfter)
	}
	if o.FileMode != DefaultFileMode {
		t.Fatalf("expected default file mode, got %v", o.FileMode)
	}
	if o.Logger == nil {
		t.Fatal("expected default logger")
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
