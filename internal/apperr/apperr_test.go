package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Elizabethomito/nearby/internal/store"
)

func TestFromStore(t *testing.T) {
	boom := errors.New("disk on fire")
	tests := []struct {
		name     string
		err      error
		wantCode Code
	}{
		{"not found", store.ErrNotFound, CodeEventNotFound},
		{"wrapped not found", fmt.Errorf("lock: %w", store.ErrNotFound), CodeEventNotFound},
		{"domain error passes through", ErrSlotsExhausted, CodeSlotsExhausted},
		{"driver error", boom, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromStore(tt.err, ErrEventNotFound, "load event")
			if CodeOf(got) != tt.wantCode {
				t.Errorf("code: got %s, want %s", CodeOf(got), tt.wantCode)
			}
		})
	}

	if got := FromStore(boom, ErrEventNotFound, "load event"); !errors.Is(got, boom) {
		t.Errorf("internal error lost its cause: %v", got)
	}
	if Message(FromStore(boom, ErrEventNotFound, "load event")) != "internal error" {
		t.Error("internal cause leaked into message")
	}
	if FromStore(nil, ErrEventNotFound, "load event") != nil {
		t.Error("nil must stay nil")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(ErrUserAlreadyBlocked) != KindConflict {
		t.Errorf("already blocked: got %s", KindOf(ErrUserAlreadyBlocked))
	}
	if KindOf(errors.New("x")) != KindInternal {
		t.Error("foreign errors must be internal")
	}
}
