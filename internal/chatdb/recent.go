package chatdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sgrimes/msgcourier/internal/match"
)

// appleEpochOffset is the Unix timestamp of 2001-01-01T00:00:00Z, the
// epoch the message table's date column counts from.
const appleEpochOffset = 978307200

// maxRecentMessages caps a single window read.
const maxRecentMessages = 100

// maxWindowHours rejects windows large enough to overflow the
// nanosecond cutoff arithmetic (10 years).
const maxWindowHours = 10 * 365 * 24

// Message is one row of conversation history, ready for display.
type Message struct {
	// Date is the local wall-clock time, RFC 3339.
	Date string `json:"date"`

	// From is "me" for outbound messages, otherwise the sender's raw
	// address (callers may substitute a contact name).
	From string `json:"from"`

	// FromMe flags outbound messages.
	FromMe bool `json:"-"`

	// Chat names the group thread, when the message belongs to one.
	Chat string `json:"chat,omitempty"`

	Body string `json:"body"`
}

// RecentMessages returns up to maxRecentMessages from the last
// window, newest first, optionally filtered to a raw address. Bodies
// fall back to the attributedBody extraction when the text column is
// empty; messages with no recoverable body are skipped.
func (s *Store) RecentMessages(ctx context.Context, window time.Duration, addressFilter string) ([]Message, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}
	if window > maxWindowHours*time.Hour {
		return nil, fmt.Errorf("window too large: %s (max %d hours)", window, maxWindowHours)
	}

	cutoff := (time.Now().Add(-window).Unix() - appleEpochOffset) * 1_000_000_000

	q := `
		SELECT m.date, COALESCE(m.text, ''), m.attributedBody,
		       m.is_from_me, COALESCE(h.id, ''), COALESCE(m.cache_roomnames, '')
		FROM message m
		LEFT JOIN handle h ON h.ROWID = m.handle_id
		WHERE CAST(m.date AS TEXT) > ?
	`
	args := []any{fmt.Sprintf("%d", cutoff)}

	if addressFilter != "" {
		variants := match.PhoneVariants(addressFilter)
		if len(variants) == 0 {
			// email or other non-numeric address: exact handle match
			q += ` AND h.id = ?`
			args = append(args, addressFilter)
		} else {
			placeholders := make([]string, 0, len(variants)*2)
			for _, v := range variants {
				placeholders = append(placeholders, "?", "?")
				args = append(args, v, "+"+v)
			}
			q += ` AND h.id IN (` + strings.Join(placeholders, ", ") + `)`
		}
	}

	q += ` ORDER BY m.date DESC LIMIT ?`
	args = append(args, maxRecentMessages)

	// Fetch room names before the main query: the store holds a single
	// connection, so a second query while rows are open would deadlock.
	roomNames, err := s.roomDisplayNames(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			date       int64
			text       string
			attributed []byte
			fromMe     int
			sender     string
			room       string
		)
		if err := rows.Scan(&date, &text, &attributed, &fromMe, &sender, &room); err != nil {
			return nil, err
		}

		body := text
		if body == "" {
			body = extractAttributedBody(attributed)
		}
		if strings.TrimSpace(body) == "" {
			continue
		}

		msg := Message{
			Date:   appleDate(date).Format(time.RFC3339),
			FromMe: fromMe != 0,
			Body:   body,
		}
		if msg.FromMe {
			msg.From = "me"
		} else {
			msg.From = sender
		}
		if room != "" {
			msg.Chat = roomNames[room]
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Message{}
	}
	return out, nil
}

// ScoredMessage is a history row with its fuzzy match score.
type ScoredMessage struct {
	Message
	Score float64 `json:"score"`
}

// SearchMessages fuzzy-matches recent message bodies against query and
// returns hits above threshold, best first.
func (s *Store) SearchMessages(ctx context.Context, query string, window time.Duration, threshold float64) ([]ScoredMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search term must not be empty")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be within [0, 1], got %g", threshold)
	}

	msgs, err := s.RecentMessages(ctx, window, "")
	if err != nil {
		return nil, err
	}

	out := []ScoredMessage{}
	for _, m := range msgs {
		score := match.Score(query, m.Body)
		if score >= threshold {
			out = append(out, ScoredMessage{Message: m, Score: score})
		}
	}
	// RecentMessages is newest-first; reorder best-first, stable so
	// equal scores keep recency order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// roomDisplayNames maps group room keys to display names.
func (s *Store) roomDisplayNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.query(ctx, `
		SELECT COALESCE(room_name, ''), COALESCE(display_name, '')
		FROM chat
		WHERE room_name IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := map[string]string{}
	for rows.Next() {
		var room, display string
		if err := rows.Scan(&room, &display); err != nil {
			return nil, err
		}
		if room != "" && display != "" {
			names[room] = display
		}
	}
	return names, rows.Err()
}

// appleDate converts a message date to wall-clock time. Old stores
// recorded seconds; modern ones record nanoseconds.
func appleDate(v int64) time.Time {
	seconds := v
	if v > 1_000_000_000_000 {
		seconds = v / 1_000_000_000
	}
	return time.Unix(seconds+appleEpochOffset, 0)
}

// extractAttributedBody recovers message text from the archived
// attributedBody blob. The blob is a typedstream archive; rather than
// parse it fully, the text is sliced from between the NSString marker
// and the trailing attribute dictionary, which holds for the archives
// Messages writes.
func extractAttributedBody(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s := string(b)

	s, _, ok := strings.Cut(s, "NSNumber")
	if !ok {
		return ""
	}
	_, s, ok = strings.Cut(s, "NSString")
	if !ok {
		return ""
	}
	s, _, ok = strings.Cut(s, "NSDictionary")
	if !ok {
		return ""
	}
	if len(s) < 18 {
		return ""
	}
	return strings.ToValidUTF8(s[6:len(s)-12], "")
}
