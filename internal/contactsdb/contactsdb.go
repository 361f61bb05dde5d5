// Package contactsdb reads the AddressBook SQLite stores to map
// between people's names and their raw addresses. The stores are
// discovered by glob because macOS shards the address book across
// per-source directories with opaque names.
package contactsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sgrimes/msgcourier/internal/match"
)

// ErrUnavailable marks a contacts store that cannot be read. Callers
// degrade to raw-address behavior rather than failing the request.
var ErrUnavailable = errors.New("contacts store unavailable")

// ErrNoMatch marks a contact lookup that found nobody.
var ErrNoMatch = errors.New("no matching contact")

// Candidate is one person/address pair offered when a lookup is
// ambiguous.
type Candidate struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// AmbiguousError reports a contact query matching more than one
// person. Candidates carries one entry per matched address so the
// caller can present a disambiguation list.
type AmbiguousError struct {
	Query      string
	Candidates []Candidate
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d contacts match %q", len(e.Candidates), e.Query)
}

// IsAmbiguous unwraps err into an AmbiguousError if that is what it is.
func IsAmbiguous(err error) (*AmbiguousError, bool) {
	var ae *AmbiguousError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Contact is one person with every address the book knows for them.
// Phones come before emails, both in book order.
type Contact struct {
	Name      string
	Addresses []string
}

// Directory resolves names to addresses across every store a glob
// pattern finds. Stores are re-read per call; the address book is
// small and the process is short-lived.
type Directory struct {
	pattern string
}

// Open validates the glob pattern and returns a Directory. A pattern
// matching no files is not an error here; each lookup degrades
// instead, since the book may appear between calls.
func Open(pattern string) (*Directory, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad contacts glob %q: %w", pattern, err)
	}
	return &Directory{pattern: pattern}, nil
}

// Lookup returns every contact whose cleaned full name contains the
// cleaned query, case folded, in book order. "jon" finds "Jon Smith 🎸"
// and "Jonathan Quayle".
func (d *Directory) Lookup(ctx context.Context, query string) ([]Contact, error) {
	cleaned := match.CleanName(query)
	if cleaned == "" {
		return []Contact{}, nil
	}

	all, err := d.load(ctx)
	if err != nil {
		return nil, err
	}

	var hits []Contact
	for _, c := range all {
		if match.FoldContains(match.CleanName(c.Name), cleaned) {
			hits = append(hits, c)
		}
	}
	if hits == nil {
		hits = []Contact{}
	}
	return hits, nil
}

// Handles returns every distinct raw address held by contacts whose
// name matches query, with the owner's name attached. Deduplication is
// on the canonical address form.
func (d *Directory) Handles(ctx context.Context, query string) ([]Candidate, error) {
	matches, err := d.Lookup(ctx, query)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []Candidate{}
	for _, c := range matches {
		for _, addr := range c.Addresses {
			key := match.CanonicalAddress(addr)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Candidate{Address: addr, Name: c.Name})
		}
	}
	return out, nil
}

// ResolveAddress narrows a name query to a single raw address. A query
// yielding no address returns ErrNoMatch; one yielding several, even
// from a single person with both a phone and an email, returns an
// AmbiguousError so the caller can have the user name one address
// explicitly.
func (d *Directory) ResolveAddress(ctx context.Context, query string) (Candidate, error) {
	candidates, err := d.Handles(ctx, query)
	if err != nil {
		return Candidate{}, err
	}
	switch len(candidates) {
	case 0:
		return Candidate{}, fmt.Errorf("%w: %s", ErrNoMatch, query)
	case 1:
		return candidates[0], nil
	}
	return Candidate{}, &AmbiguousError{Query: query, Candidates: candidates}
}

// AddressNames maps every known address, in canonical form, to its
// owner's name. Used to label message senders.
func (d *Directory) AddressNames(ctx context.Context) (map[string]string, error) {
	all, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	for _, c := range all {
		for _, addr := range c.Addresses {
			key := match.CanonicalAddress(addr)
			if _, taken := names[key]; !taken {
				names[key] = c.Name
			}
		}
	}
	return names, nil
}

// Check reports the health of every store the glob finds, for the
// doctor command. It fails when the glob matches nothing.
func Check(pattern string) ([]string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad contacts glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no store matches %s", ErrUnavailable, pattern)
	}
	var status []string
	for _, p := range paths {
		if _, err := readSource(context.Background(), p); err != nil {
			status = append(status, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		status = append(status, fmt.Sprintf("%s: ok", p))
	}
	return status, nil
}

// load reads every discovered store and merges people that appear in
// more than one source under the same name. Unreadable sources are
// skipped; only a total failure surfaces as ErrUnavailable.
func (d *Directory) load(ctx context.Context) ([]Contact, error) {
	paths, err := filepath.Glob(d.pattern)
	if err != nil {
		return nil, fmt.Errorf("bad contacts glob %q: %w", d.pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no store matches %s", ErrUnavailable, d.pattern)
	}

	merged := map[string]*Contact{}
	var order []string
	readable := 0
	for _, p := range paths {
		contacts, err := readSource(ctx, p)
		if err != nil {
			continue
		}
		readable++
		for _, c := range contacts {
			key := match.Fold(match.CleanName(c.Name))
			if key == "" {
				continue
			}
			existing, ok := merged[key]
			if !ok {
				copied := c
				merged[key] = &copied
				order = append(order, key)
				continue
			}
			existing.Addresses = mergeAddresses(existing.Addresses, c.Addresses)
		}
	}
	if readable == 0 {
		return nil, fmt.Errorf("%w: no readable store among %d", ErrUnavailable, len(paths))
	}

	out := make([]Contact, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out, nil
}

// readSource loads one AddressBook store.
func readSource(ctx context.Context, path string) ([]Contact, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT Z_PK, COALESCE(ZFIRSTNAME, ''), COALESCE(ZLASTNAME, '')
		FROM ZABCDRECORD
		ORDER BY Z_PK
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPK := map[int64]*Contact{}
	var order []int64
	for rows.Next() {
		var (
			pk          int64
			first, last string
		)
		if err := rows.Scan(&pk, &first, &last); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(first + " " + last)
		if name == "" {
			continue
		}
		byPK[pk] = &Contact{Name: name}
		order = append(order, pk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	appendAddrs := func(query string) error {
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				owner int64
				addr  string
			)
			if err := rows.Scan(&owner, &addr); err != nil {
				return err
			}
			c, ok := byPK[owner]
			if !ok || strings.TrimSpace(addr) == "" {
				continue
			}
			c.Addresses = mergeAddresses(c.Addresses, []string{strings.TrimSpace(addr)})
		}
		return rows.Err()
	}

	if err := appendAddrs(`SELECT ZOWNER, COALESCE(ZFULLNUMBER, '') FROM ZABCDPHONENUMBER ORDER BY ZOWNER, ZORDERINGINDEX, Z_PK`); err != nil {
		return nil, err
	}
	if err := appendAddrs(`SELECT ZOWNER, COALESCE(ZADDRESS, '') FROM ZABCDEMAILADDRESS ORDER BY ZOWNER, Z_PK`); err != nil {
		return nil, err
	}

	out := make([]Contact, 0, len(order))
	for _, pk := range order {
		out = append(out, *byPK[pk])
	}
	return out, nil
}

// mergeAddresses appends addrs to dst, skipping entries whose
// canonical form is already present.
func mergeAddresses(dst, addrs []string) []string {
	seen := map[string]bool{}
	for _, a := range dst {
		seen[match.CanonicalAddress(a)] = true
	}
	for _, a := range addrs {
		key := match.CanonicalAddress(a)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, a)
	}
	return dst
}
