package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/g1food/api/internal/platform/firestore"
	"github.com/g1food/api/internal/repositories"
)

const sequencesCollection = "sequences"

type sequenceDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// SequenceRepository implements repositories.SequenceRepository backed by
// Firestore transactions. One document per scope holds the highest value
// handed out so far; an absent document behaves as zero.
type SequenceRepository struct {
	provider  *pfirestore.Provider
	sequences *pfirestore.BaseRepository[sequenceDocument]
}

// NewSequenceRepository constructs a Firestore-backed sequence repository.
func NewSequenceRepository(provider *pfirestore.Provider) (*SequenceRepository, error) {
	if provider == nil {
		return nil, errors.New("sequence repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[sequenceDocument](provider, sequencesCollection, nil, nil)
	return &SequenceRepository{
		provider:  provider,
		sequences: base,
	}, nil
}

// AllocateBlock reserves count consecutive values in scope and returns the first.
func (r *SequenceRepository) AllocateBlock(ctx context.Context, scope string, count int) (int64, error) {
	firsts, err := r.AllocateMany(ctx, map[string]int{scope: count})
	if err != nil {
		return 0, err
	}
	return firsts[strings.TrimSpace(scope)], nil
}

// AllocateMany reserves one block per scope atomically and returns the first
// value of each block. When the context carries an open transaction the
// allocation joins it; otherwise a dedicated transaction is run.
func (r *SequenceRepository) AllocateMany(ctx context.Context, counts map[string]int) (map[string]int64, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("sequence repository not initialised")
	}
	if len(counts) == 0 {
		return nil, repositories.NewSequenceError(repositories.SequenceErrorInvalidInput, "at least one scope is required", nil)
	}

	normalised := make(map[string]int, len(counts))
	for scope, count := range counts {
		trimmed := strings.TrimSpace(scope)
		if trimmed == "" {
			return nil, repositories.NewSequenceError(repositories.SequenceErrorInvalidInput, "sequence scope is required", nil)
		}
		if count <= 0 {
			return nil, repositories.NewSequenceError(repositories.SequenceErrorInvalidInput, fmt.Sprintf("count must be positive for scope %s, got %d", trimmed, count), nil)
		}
		normalised[trimmed] = count
	}

	if tx, ok := pfirestore.TransactionFrom(ctx); ok {
		return r.allocateInTx(ctx, tx, normalised)
	}

	var firsts map[string]int64
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		allocated, err := r.allocateInTx(ctx, tx, normalised)
		if err != nil {
			return err
		}
		firsts = allocated
		return nil
	})
	if err != nil {
		var seqErr *repositories.SequenceError
		if errors.As(err, &seqErr) {
			return nil, seqErr
		}
		return nil, pfirestore.WrapError("sequences.allocate", err)
	}
	return firsts, nil
}

// allocateInTx performs all reads before any writes, as Firestore
// transactions require. Scopes are visited in sorted order so concurrent
// multi-scope allocations cannot deadlock on lock ordering.
func (r *SequenceRepository) allocateInTx(ctx context.Context, tx *firestore.Transaction, counts map[string]int) (map[string]int64, error) {
	scopes := make([]string, 0, len(counts))
	for scope := range counts {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	type scopeState struct {
		ref    *firestore.DocumentRef
		doc    sequenceDocument
		exists bool
	}

	states := make(map[string]*scopeState, len(scopes))
	for _, scope := range scopes {
		ref, err := r.sequences.DocumentRef(ctx, scope)
		if err != nil {
			return nil, err
		}

		state := &scopeState{ref: ref}
		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			// Cold start: the scope begins at zero.
		case codes.OK:
			if err := snapshot.DataTo(&state.doc); err != nil {
				return nil, fmt.Errorf("firestore sequences decode %s: %w", scope, err)
			}
			state.exists = true
		default:
			return nil, err
		}
		states[scope] = state
	}

	now := time.Now().UTC()
	firsts := make(map[string]int64, len(scopes))
	for _, scope := range scopes {
		state := states[scope]
		first := state.doc.CurrentValue + 1
		state.doc.CurrentValue += int64(counts[scope])
		state.doc.UpdatedAt = now

		if state.exists {
			if err := tx.Set(state.ref, state.doc); err != nil {
				return nil, err
			}
		} else {
			if err := tx.Create(state.ref, state.doc); err != nil {
				return nil, err
			}
		}
		firsts[scope] = first
	}
	return firsts, nil
}

var _ repositories.SequenceRepository = (*SequenceRepository)(nil)
