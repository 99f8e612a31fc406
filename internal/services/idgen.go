package services

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildSeed derives the ID seed from a user's name: the first three runes of
// the last name followed by the first three runes of the first name,
// uppercased. Names shorter than three runes contribute whatever they have.
func BuildSeed(firstname, lastname string) string {
	return strings.ToUpper(takeRunes(lastname, 3) + takeRunes(firstname, 3))
}

// generateID turns a seed into a unique account ID. The first holder of a
// seed gets the bare seed. On collision the seed is truncated to five runes
// (a no-op for shorter seeds) and the count of IDs sharing that prefix, plus
// one, becomes a decimal suffix. The suffixed ID is not re-checked; two
// racing registrations with the same seed can collide, and the store's
// primary-key constraint is what stops the second insert.
func (s *AccountService) generateID(seed string) (string, error) {
	count, err := s.userRepo.CountByIDPrefix(seed)
	if err != nil {
		return "", fmt.Errorf("failed to count ids with prefix %s: %w", seed, err)
	}
	if count == 0 {
		return seed, nil
	}

	prefix := takeRunes(seed, 5)
	count, err = s.userRepo.CountByIDPrefix(prefix)
	if err != nil {
		return "", fmt.Errorf("failed to count ids with prefix %s: %w", prefix, err)
	}
	return prefix + strconv.FormatInt(count+1, 10), nil
}

func takeRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
