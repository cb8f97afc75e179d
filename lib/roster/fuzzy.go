// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import (
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var initScoring sync.Once

// fuzzyScore returns fzf's V2 score for pattern against text, or 0 when
// the pattern's characters do not all appear in order. Both sides are
// lowercased first: fzf's case-insensitive mode only folds the input,
// so an uppercase pattern rune would otherwise never match.
//
// The score only decides whether a member matches. Result order is
// always the comparator's, never fzf's ranking.
func fuzzyScore(text string, pattern []rune) int {
	if len(pattern) == 0 {
		return 0
	}
	initScoring.Do(func() { algo.Init("default") })
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, _ := algo.FuzzyMatchV2(false, false, true, &chars, pattern, false, nil)
	return result.Score
}

// matchPattern prepares a query for fuzzyScore. Surrounding whitespace
// is dropped; a blank query yields nil, which matches everything.
func matchPattern(query string) []rune {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}
	return []rune(strings.ToLower(trimmed))
}

// matches reports whether member's user ID or display name fuzzily
// contains pattern.
func matches(member Member, pattern []rune) bool {
	if pattern == nil {
		return true
	}
	return fuzzyScore(member.UserID.String(), pattern) > 0 ||
		fuzzyScore(member.DisplayName, pattern) > 0
}
