package contactsdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrimes/msgcourier/internal/testutil"
)

func openFixture(t *testing.T, contacts []testutil.FixtureContact) *Directory {
	t.Helper()
	d, err := Open(testutil.ContactsDB(t, contacts))
	require.NoError(t, err)
	return d
}

func TestLookup_SubstringOnFullName(t *testing.T) {
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+15551234567"}, Emails: []string{"jon@example.com"}},
		{First: "Maria", Last: "Lopez", Phones: []string{"+15559876543"}},
	})

	got, err := d.Lookup(context.Background(), "Jon Smith")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jon Smith", got[0].Name)
	assert.Equal(t, []string{"+15551234567", "jon@example.com"}, got[0].Addresses)

	// Partial names still hit.
	got, err = d.Lookup(context.Background(), "jon")
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Last name alone works too.
	got, err = d.Lookup(context.Background(), "lopez")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Maria Lopez", got[0].Name)
}

func TestLookup_CleansDecoratedNames(t *testing.T) {
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon 🎸", Last: "Smith", Phones: []string{"+15551234567"}},
	})

	got, err := d.Lookup(context.Background(), "jon smith")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestLookup_NoHitReturnsEmptySlice(t *testing.T) {
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+15551234567"}},
	})

	got, err := d.Lookup(context.Background(), "Quartermain")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHandles_DistinctAcrossContacts(t *testing.T) {
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+15551234567"}},
		{First: "Jon", Last: "Smythe", Phones: []string{"+15557654321"}, Emails: []string{"smythe@example.com"}},
	})

	got, err := d.Handles(context.Background(), "jon")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Candidate{Address: "+15551234567", Name: "Jon Smith"}, got[0])
}

func TestHandles_DedupesSharedNumbers(t *testing.T) {
	// A number filed under two formats collapses to one handle.
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+1 (555) 123-4567", "15551234567"}},
	})

	got, err := d.Handles(context.Background(), "jon")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestResolveAddress_Single(t *testing.T) {
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+15551234567"}},
	})

	c, err := d.ResolveAddress(context.Background(), "jon")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", c.Address)
	assert.Equal(t, "Jon Smith", c.Name)
}

func TestResolveAddress_NoMatch(t *testing.T) {
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+15551234567"}},
	})

	_, err := d.ResolveAddress(context.Background(), "Nobody Here")
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestResolveAddress_TwoAddressesIsAmbiguous(t *testing.T) {
	// Even a single person is ambiguous when they carry two distinct
	// addresses; the caller must name one.
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+15551234567"}, Emails: []string{"jon@example.com"}},
	})

	_, err := d.ResolveAddress(context.Background(), "jon")
	ae, ok := IsAmbiguous(err)
	require.True(t, ok)
	assert.Equal(t, "jon", ae.Query)
	assert.Len(t, ae.Candidates, 2)
}

func TestAddressNames(t *testing.T) {
	d := openFixture(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+1 (555) 123-4567"}, Emails: []string{"Jon@Example.com"}},
	})

	names, err := d.AddressNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jon Smith", names["15551234567"])
	assert.Equal(t, "Jon Smith", names["jon@example.com"])
}

func TestDirectory_UnavailableWhenGlobMatchesNothing(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "*.abcddb"))
	require.NoError(t, err)

	_, err = d.Lookup(context.Background(), "anyone")
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = Check(filepath.Join(t.TempDir(), "*.abcddb"))
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestDirectory_MergesSources(t *testing.T) {
	// Same person in two stores under one glob: addresses union.
	pathA := testutil.ContactsDB(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Phones: []string{"+15551234567"}},
	})
	pathB := testutil.ContactsDB(t, []testutil.FixtureContact{
		{First: "Jon", Last: "Smith", Emails: []string{"jon@example.com"}},
	})
	parent := filepath.Dir(filepath.Dir(pathA))
	require.Equal(t, parent, filepath.Dir(filepath.Dir(pathB)))

	d, err := Open(filepath.Join(parent, "*", "AddressBook-v22.abcddb"))
	require.NoError(t, err)

	got, err := d.Lookup(context.Background(), "Jon Smith")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.ElementsMatch(t, []string{"+15551234567", "jon@example.com"}, got[0].Addresses)
}

func TestCheck_ReportsPerStore(t *testing.T) {
	path := testutil.ContactsDB(t, nil)
	status, err := Check(path)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Contains(t, status[0], "ok")
}
