package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain "github.com/g1food/api/internal/domain"
	"github.com/g1food/api/internal/repositories"
)

type stubSequenceRepository struct {
	mu               sync.Mutex
	allocateBlockFn  func(ctx context.Context, scope string, count int) (int64, error)
	allocateManyFn   func(ctx context.Context, counts map[string]int) (map[string]int64, error)
	allocateRequests []map[string]int
}

func (s *stubSequenceRepository) AllocateBlock(ctx context.Context, scope string, count int) (int64, error) {
	s.mu.Lock()
	fn := s.allocateBlockFn
	s.mu.Unlock()
	if fn == nil {
		return 0, errors.New("unexpected AllocateBlock call")
	}
	return fn(ctx, scope, count)
}

func (s *stubSequenceRepository) AllocateMany(ctx context.Context, counts map[string]int) (map[string]int64, error) {
	s.mu.Lock()
	s.allocateRequests = append(s.allocateRequests, counts)
	fn := s.allocateManyFn
	s.mu.Unlock()
	if fn == nil {
		return nil, errors.New("unexpected AllocateMany call")
	}
	return fn(ctx, counts)
}

func TestFormatIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		value   int64
		want    string
		wantErr error
	}{
		{name: "pads to four digits", prefix: "OR", value: 1, want: "OR0001"},
		{name: "mid range", prefix: "US", value: 123, want: "US0123"},
		{name: "widens past 9999", prefix: "OD", value: 12345, want: "OD12345"},
		{name: "empty prefix", prefix: " ", value: 1, wantErr: ErrIdentifierInvalidInput},
		{name: "non positive value", prefix: "OR", value: 0, wantErr: ErrIdentifierInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatIdentifier(tc.prefix, tc.value)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNextIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		current string
		want    string
		wantErr error
	}{
		{name: "increments", prefix: "OR", current: "OR0041", want: "OR0042"},
		{name: "rolls into five digits", prefix: "OR", current: "OR9999", want: "OR10000"},
		{name: "wrong prefix", prefix: "OR", current: "US0001", wantErr: ErrMalformedIdentifier},
		{name: "no numeric suffix", prefix: "OR", current: "ORabc", wantErr: ErrMalformedIdentifier},
		{name: "empty", prefix: "OR", current: "", wantErr: ErrMalformedIdentifier},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextIdentifier(tc.prefix, tc.current)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestProductPrefix(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "two words", input: "Beef Noodles", want: "BN"},
		{name: "extra words ignored", input: "spring roll platter", want: "SR"},
		{name: "single word", input: "pizza", want: "PI"},
		{name: "single short word", input: "x", wantErr: ErrMalformedIdentifier},
		{name: "blank", input: "   ", wantErr: ErrIdentifierInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ProductPrefix(tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIdentifierServiceNextOrderID(t *testing.T) {
	sequences := &stubSequenceRepository{
		allocateBlockFn: func(_ context.Context, scope string, count int) (int64, error) {
			if scope != repositories.SequenceScopeOrders {
				t.Fatalf("unexpected scope %q", scope)
			}
			if count != 1 {
				t.Fatalf("unexpected count %d", count)
			}
			return 7, nil
		},
	}
	service, err := NewIdentifierService(IdentifierServiceDeps{Sequences: sequences})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, err := service.NextOrderID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "OR0007" {
		t.Fatalf("expected OR0007, got %q", id)
	}
}

func TestIdentifierServiceNextOrderAndLineIDs(t *testing.T) {
	sequences := &stubSequenceRepository{
		allocateManyFn: func(_ context.Context, counts map[string]int) (map[string]int64, error) {
			return map[string]int64{
				repositories.SequenceScopeOrders:     12,
				repositories.SequenceScopeOrderLines: 31,
			}, nil
		},
	}
	service, err := NewIdentifierService(IdentifierServiceDeps{Sequences: sequences})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orderID, lineIDs, err := service.NextOrderAndLineIDs(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orderID != "OR0012" {
		t.Fatalf("expected OR0012, got %q", orderID)
	}
	want := []string{"OD0031", "OD0032", "OD0033"}
	if len(lineIDs) != len(want) {
		t.Fatalf("expected %d line ids, got %d", len(want), len(lineIDs))
	}
	for i := range want {
		if lineIDs[i] != want[i] {
			t.Fatalf("expected %q at %d, got %q", want[i], i, lineIDs[i])
		}
	}

	sequences.mu.Lock()
	requests := sequences.allocateRequests
	sequences.mu.Unlock()
	if len(requests) != 1 {
		t.Fatalf("expected one allocation request, got %d", len(requests))
	}
	if requests[0][repositories.SequenceScopeOrders] != 1 || requests[0][repositories.SequenceScopeOrderLines] != 3 {
		t.Fatalf("unexpected allocation request %v", requests[0])
	}
}

func TestIdentifierServiceNextOrderAndLineIDsRejectsZeroLines(t *testing.T) {
	service, err := NewIdentifierService(IdentifierServiceDeps{Sequences: &stubSequenceRepository{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := service.NextOrderAndLineIDs(context.Background(), 0); !errors.Is(err, ErrIdentifierInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIdentifierServiceNextAccountID(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.Role
		want    string
		wantErr error
	}{
		{name: "admin", role: domain.RoleAdmin, want: "AD0009"},
		{name: "kitchen", role: domain.RoleKitchen, want: "CH0009"},
		{name: "delivery", role: domain.RoleDelivery, want: "SP0009"},
		{name: "customer", role: domain.RoleCustomer, want: "US0009"},
		{name: "unknown role", role: domain.RoleUnknown, wantErr: ErrIdentifierInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sequences := &stubSequenceRepository{
				allocateBlockFn: func(_ context.Context, scope string, count int) (int64, error) {
					if scope != repositories.SequenceScopeAccounts {
						t.Fatalf("unexpected scope %q", scope)
					}
					return 9, nil
				},
			}
			service, err := NewIdentifierService(IdentifierServiceDeps{Sequences: sequences})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			id, err := service.NextAccountID(context.Background(), tc.role)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, id)
			}
		})
	}
}

func TestIdentifierServiceNextProductID(t *testing.T) {
	sequences := &stubSequenceRepository{
		allocateBlockFn: func(_ context.Context, scope string, count int) (int64, error) {
			if scope != repositories.SequenceScopeProducts {
				t.Fatalf("unexpected scope %q", scope)
			}
			return 3, nil
		},
	}
	service, err := NewIdentifierService(IdentifierServiceDeps{Sequences: sequences})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, err := service.NextProductID(context.Background(), "Beef Noodles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "BN0003" {
		t.Fatalf("expected BN0003, got %q", id)
	}
}

func TestIdentifierServiceMapsSequenceConflicts(t *testing.T) {
	sequences := &stubSequenceRepository{
		allocateBlockFn: func(_ context.Context, _ string, _ int) (int64, error) {
			return 0, repositories.NewSequenceError(repositories.SequenceErrorConflict, "contention", nil)
		},
	}
	service, err := NewIdentifierService(IdentifierServiceDeps{Sequences: sequences})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.NextOrderID(context.Background()); !errors.Is(err, ErrSequenceConflict) {
		t.Fatalf("expected sequence conflict, got %v", err)
	}
}
