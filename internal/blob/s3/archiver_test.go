package s3blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	m.types[path] = contentType
	return nil
}

type MockReader struct {
	mock.Mock
}

func (m *MockReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *MockReader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	args := m.Called(ctx, prefix)
	infos, _ := args.Get(0).([]domain.BlobInfo)
	return infos, args.Error(1)
}

var fetchedAt = time.Date(2026, 1, 9, 20, 5, 7, 0, time.UTC)

func TestSnapshotArchiver_ArchiveOdds(t *testing.T) {
	w := newMemWriter()
	a := NewSnapshotArchiver(w, nil, "")

	snap := domain.OddsSnapshot{
		NBA:         []domain.Game{{ID: "g1", HomeTeam: "Boston Celtics", AwayTeam: "Los Angeles Lakers"}},
		NFL:         []domain.Game{},
		TotalGames:  1,
		LastUpdated: fetchedAt,
	}

	path, err := a.ArchiveOdds(context.Background(), snap, fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/2026/01/09/200507000_odds.json", path)
	assert.Equal(t, "application/json", w.types[path])

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.objects[path], &got))
	assert.EqualValues(t, 1, got["total_games"])
	assert.Len(t, got["nba"], 1)
}

func TestSnapshotArchiver_ArchiveArbitrage(t *testing.T) {
	w := newMemWriter()
	a := NewSnapshotArchiver(w, nil, "/archive/")

	loc := time.FixedZone("PST", -8*60*60)
	path, err := a.ArchiveArbitrage(context.Background(), domain.EmptyArbitrageSnapshot(fetchedAt), fetchedAt.In(loc))
	require.NoError(t, err)
	assert.Equal(t, "archive/2026/01/09/200507000_arbitrage.json", path)
	assert.True(t, strings.Contains(string(w.objects[path]), `"opportunities":[]`))
}

func TestSnapshotArchiver_SameSecondKeepsBoth(t *testing.T) {
	w := newMemWriter()
	a := NewSnapshotArchiver(w, nil, "")

	first, err := a.ArchiveOdds(context.Background(), domain.EmptyOddsSnapshot(fetchedAt), fetchedAt)
	require.NoError(t, err)
	later := fetchedAt.Add(250 * time.Millisecond)
	second, err := a.ArchiveOdds(context.Background(), domain.EmptyOddsSnapshot(later), later)
	require.NoError(t, err)

	assert.Equal(t, "snapshots/2026/01/09/200507250_odds.json", second)
	assert.NotEqual(t, first, second)
	assert.Len(t, w.objects, 2)
	assert.Less(t, first, second, "keys sort in fetch order")
}

func TestSnapshotArchiver_UploadError(t *testing.T) {
	w := newMemWriter()
	w.err = errors.New("bucket gone")
	a := NewSnapshotArchiver(w, nil, "")

	_, err := a.ArchiveOdds(context.Background(), domain.EmptyOddsSnapshot(fetchedAt), fetchedAt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestSnapshotArchiver_ListDay(t *testing.T) {
	r := new(MockReader)
	a := NewSnapshotArchiver(newMemWriter(), r, "")

	infos := []domain.BlobInfo{{Path: "snapshots/2026/01/09/200507000_odds.json", Size: 42}}
	r.On("List", mock.Anything, "snapshots/2026/01/09/").Return(infos, nil).Once()

	got, err := a.ListDay(context.Background(), fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, infos, got)
	r.AssertExpectations(t)

	_, err = NewSnapshotArchiver(newMemWriter(), nil, "").ListDay(context.Background(), fetchedAt)
	assert.Error(t, err)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("https://s3.example.com", false))
	assert.Equal(t, "https://e2.example.net", normaliseEndpoint("e2.example.net", true))
	assert.Equal(t, "http://e2.example.net", normaliseEndpoint("e2.example.net", false))
}

func TestSnapshotArchiver_Open(t *testing.T) {
	r := new(MockReader)
	a := NewSnapshotArchiver(newMemWriter(), r, "")

	key := "snapshots/2026/01/09/200507000_odds.json"
	r.On("Get", mock.Anything, key).Return(io.NopCloser(strings.NewReader(`{}`)), nil).Once()

	rc, err := a.Open(context.Background(), key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, `{}`, string(body))

	for _, bad := range []string{"other/2026/01/09/x.json", "snapshots/../secrets.json", "snapshots/2026/01/09/x.txt"} {
		_, err := a.Open(context.Background(), bad)
		assert.ErrorIs(t, err, domain.ErrInvalidKey, bad)
	}

	r.On("Get", mock.Anything, "snapshots/missing.json").Return(nil, domain.ErrNotFound).Once()
	_, err = a.Open(context.Background(), "snapshots/missing.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	r.AssertExpectations(t)
}
