package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	domain "github.com/g1food/api/internal/domain"
	"github.com/g1food/api/internal/repositories"
)

// Identifier service errors.
var (
	ErrIdentifierInvalidInput = errors.New("identifier: invalid input")
	ErrMalformedIdentifier    = errors.New("identifier: malformed identifier")
	ErrSequenceConflict       = errors.New("identifier: sequence conflict")
	ErrIdentifierUnavailable  = errors.New("identifier: sequence unavailable")
)

const identifierPadWidth = 4

// FormatIdentifier renders a prefixed sequential identifier. Values are
// zero-padded to four digits and widen naturally past 9999.
func FormatIdentifier(prefix string, value int64) (string, error) {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return "", fmt.Errorf("%w: prefix is required", ErrIdentifierInvalidInput)
	}
	if value <= 0 {
		return "", fmt.Errorf("%w: value must be positive", ErrIdentifierInvalidInput)
	}
	return fmt.Sprintf("%s%0*d", p, identifierPadWidth, value), nil
}

// NextIdentifier returns the identifier following current within the same
// prefix. The numeric suffix must be decimal.
func NextIdentifier(prefix, current string) (string, error) {
	p := strings.TrimSpace(prefix)
	id := strings.TrimSpace(current)
	if p == "" || !strings.HasPrefix(id, p) {
		return "", fmt.Errorf("%w: %q does not carry prefix %q", ErrMalformedIdentifier, current, prefix)
	}
	suffix := id[len(p):]
	value, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || value < 0 {
		return "", fmt.Errorf("%w: %q has no numeric suffix", ErrMalformedIdentifier, current)
	}
	return FormatIdentifier(p, value+1)
}

// ProductPrefix derives the two-letter sequence prefix from a product name:
// the upper-cased initials of the first two words, or the first two letters
// when the name is a single word.
func ProductPrefix(name string) (string, error) {
	fields := strings.Fields(name)
	switch {
	case len(fields) == 0:
		return "", fmt.Errorf("%w: product name is required", ErrIdentifierInvalidInput)
	case len(fields) == 1:
		runes := []rune(fields[0])
		if len(runes) < 2 {
			return "", fmt.Errorf("%w: product name %q is too short for a prefix", ErrMalformedIdentifier, name)
		}
		return strings.ToUpper(string(runes[:2])), nil
	default:
		first := []rune(fields[0])
		second := []rune(fields[1])
		prefix := string(unicode.ToUpper(first[0])) + string(unicode.ToUpper(second[0]))
		return prefix, nil
	}
}

// IdentifierServiceDeps wires the sequence repository into the service.
type IdentifierServiceDeps struct {
	Sequences repositories.SequenceRepository
}

type identifierService struct {
	sequences repositories.SequenceRepository
}

// NewIdentifierService constructs the sequential identifier allocator.
func NewIdentifierService(deps IdentifierServiceDeps) (IdentifierService, error) {
	if deps.Sequences == nil {
		return nil, errors.New("identifier service requires sequence repository")
	}
	return &identifierService{sequences: deps.Sequences}, nil
}

const (
	orderIDPrefix     = "OR"
	orderLineIDPrefix = "OD"
)

func (s *identifierService) NextOrderID(ctx context.Context) (string, error) {
	first, err := s.sequences.AllocateBlock(ctx, repositories.SequenceScopeOrders, 1)
	if err != nil {
		return "", s.mapSequenceError(err)
	}
	return FormatIdentifier(orderIDPrefix, first)
}

func (s *identifierService) NextOrderLineIDs(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrIdentifierInvalidInput)
	}
	first, err := s.sequences.AllocateBlock(ctx, repositories.SequenceScopeOrderLines, count)
	if err != nil {
		return nil, s.mapSequenceError(err)
	}
	return formatBlock(orderLineIDPrefix, first, count)
}

func (s *identifierService) NextOrderAndLineIDs(ctx context.Context, lineCount int) (string, []string, error) {
	if lineCount <= 0 {
		return "", nil, fmt.Errorf("%w: line count must be positive", ErrIdentifierInvalidInput)
	}
	allocated, err := s.sequences.AllocateMany(ctx, map[string]int{
		repositories.SequenceScopeOrders:     1,
		repositories.SequenceScopeOrderLines: lineCount,
	})
	if err != nil {
		return "", nil, s.mapSequenceError(err)
	}
	orderID, err := FormatIdentifier(orderIDPrefix, allocated[repositories.SequenceScopeOrders])
	if err != nil {
		return "", nil, err
	}
	lineIDs, err := formatBlock(orderLineIDPrefix, allocated[repositories.SequenceScopeOrderLines], lineCount)
	if err != nil {
		return "", nil, err
	}
	return orderID, lineIDs, nil
}

func (s *identifierService) NextAccountID(ctx context.Context, role Role) (string, error) {
	prefix, err := accountPrefixFor(role)
	if err != nil {
		return "", err
	}
	first, err := s.sequences.AllocateBlock(ctx, repositories.SequenceScopeAccounts, 1)
	if err != nil {
		return "", s.mapSequenceError(err)
	}
	return FormatIdentifier(prefix, first)
}

func (s *identifierService) NextProductID(ctx context.Context, productName string) (string, error) {
	prefix, err := ProductPrefix(productName)
	if err != nil {
		return "", err
	}
	first, err := s.sequences.AllocateBlock(ctx, repositories.SequenceScopeProducts, 1)
	if err != nil {
		return "", s.mapSequenceError(err)
	}
	return FormatIdentifier(prefix, first)
}

// accountPrefixFor maps a role to its identifier prefix. All roles share one
// account sequence, so numbers stay unique across prefixes.
func accountPrefixFor(role Role) (string, error) {
	switch role {
	case domain.RoleAdmin:
		return "AD", nil
	case domain.RoleKitchen:
		return "CH", nil
	case domain.RoleDelivery:
		return "SP", nil
	case domain.RoleCustomer:
		return "US", nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrIdentifierInvalidInput, role)
	}
}

// formatBlock renders count identifiers starting at first.
func formatBlock(prefix string, first int64, count int) ([]string, error) {
	last := first + int64(count) - 1
	ids := make([]string, 0, count)
	for value := first; value <= last; value++ {
		id, err := FormatIdentifier(prefix, value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *identifierService) mapSequenceError(err error) error {
	var seqErr *repositories.SequenceError
	if errors.As(err, &seqErr) {
		switch seqErr.Code {
		case repositories.SequenceErrorInvalidInput:
			return fmt.Errorf("%w: %s", ErrIdentifierInvalidInput, seqErr.Message)
		case repositories.SequenceErrorConflict:
			return fmt.Errorf("%w: %s", ErrSequenceConflict, seqErr.Message)
		}
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsConflict() {
			return fmt.Errorf("%w: %v", ErrSequenceConflict, err)
		}
		if repoErr.IsUnavailable() {
			return fmt.Errorf("%w: %v", ErrIdentifierUnavailable, err)
		}
	}
	return err
}

var _ IdentifierService = (*identifierService)(nil)
