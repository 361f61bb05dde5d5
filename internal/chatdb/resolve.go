package chatdb

import (
	"context"
	"sort"
	"strings"

	"github.com/sgrimes/msgcourier/internal/match"
)

// Match ranks. Lower ranks sort first; ties break on recency.
const (
	rankExactName  = 0
	rankNamePrefix = 1
	rankSubstring  = 2
)

// handleSeparator joins aggregated participant addresses in SQL.
// Unit separator cannot appear in a phone number or email.
const handleSeparator = "\x1f"

// Resolve returns ranked conversation candidates for a free-text
// query: exact display-name matches first, then display-name prefix
// matches, then any substring hit across display name, participant
// address, stable key, and opaque identifier. Within a rank, newer
// conversations win. The list is capped at limit.
func (s *Store) Resolve(ctx context.Context, query string, limit int) ([]Conversation, error) {
	if strings.TrimSpace(query) == "" {
		return []Conversation{}, nil
	}

	all, err := s.conversations(ctx)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		conv Conversation
		rank int
	}
	var matches []ranked
	for _, c := range all {
		r, ok := rankConversation(c, query)
		if !ok {
			continue
		}
		matches = append(matches, ranked{conv: c, rank: r})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].conv.RowID > matches[j].conv.RowID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]Conversation, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.conv)
	}
	return results, nil
}

// ResolveFuzzy scores conversation display names against the query and
// returns candidates above threshold, best first. Unnamed 1:1 threads
// are scored on their participant addresses so a bare number still
// resolves.
func (s *Store) ResolveFuzzy(ctx context.Context, query string, limit int) ([]Conversation, error) {
	if strings.TrimSpace(query) == "" {
		return []Conversation{}, nil
	}

	all, err := s.conversations(ctx)
	if err != nil {
		return nil, err
	}

	const threshold = 0.3

	type scored struct {
		conv  Conversation
		score float64
	}
	var matches []scored
	for _, c := range all {
		score := match.Score(query, c.DisplayName)
		for _, p := range c.Participants {
			if s := match.Score(query, p); s > score {
				score = s
			}
		}
		if score >= threshold {
			matches = append(matches, scored{conv: c, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].conv.RowID > matches[j].conv.RowID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]Conversation, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.conv)
	}
	return results, nil
}

// FindByIdentifier returns the conversation whose stable key or opaque
// identifier equals id, or nil when the store has no such thread. Used
// by the delivery engine to recover participants for a chat id the
// automation layer refuses.
func (s *Store) FindByIdentifier(ctx context.Context, id string) (*Conversation, error) {
	all, err := s.conversations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		c := &all[i]
		if c.Identifier == id || c.GUID == id || c.ChatID == id {
			return c, nil
		}
	}
	return nil, nil
}

// rankConversation returns the match rank for query against c, or
// ok=false when nothing matches.
func rankConversation(c Conversation, query string) (int, bool) {
	if c.DisplayName != "" {
		if match.FoldEqual(c.DisplayName, query) {
			return rankExactName, true
		}
		if match.FoldHasPrefix(c.DisplayName, query) {
			return rankNamePrefix, true
		}
		if match.FoldContains(c.DisplayName, query) {
			return rankSubstring, true
		}
	}
	for _, p := range c.Participants {
		if match.FoldContains(p, query) {
			return rankSubstring, true
		}
	}
	if match.FoldContains(c.Identifier, query) || match.FoldContains(c.GUID, query) {
		return rankSubstring, true
	}
	return 0, false
}

// conversations loads every thread with its aggregated participant
// addresses. The chat table is small relative to the message table, so
// filtering and ranking happen in Go where matching is fold-aware.
func (s *Store) conversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.query(ctx, `
		SELECT c.ROWID, c.guid, c.chat_identifier,
		       COALESCE(c.display_name, ''),
		       COALESCE(GROUP_CONCAT(h.id, char(31)), '')
		FROM chat c
		LEFT JOIN chat_handle_join chj ON chj.chat_id = c.ROWID
		LEFT JOIN handle h ON h.ROWID = chj.handle_id
		GROUP BY c.ROWID
		ORDER BY c.ROWID DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		var joined string
		if err := rows.Scan(&c.RowID, &c.GUID, &c.Identifier, &c.DisplayName, &joined); err != nil {
			return nil, err
		}
		c.Participants = dedupeAddresses(strings.Split(joined, handleSeparator))
		c.ChatID = primaryIdentifier(c.Identifier, c.GUID)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// dedupeAddresses drops empty and duplicate addresses, preserving
// first-seen order. Duplicates are detected on the canonical form so
// "+1 (555) 123-4567" and "15551234567" collapse.
func dedupeAddresses(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := match.CanonicalAddress(a)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
