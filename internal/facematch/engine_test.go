package facematch

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	// results maps the first byte of the image payload to extracted vectors.
	results map[byte][][]float64
	err     error
}

func (s *stubExtractor) ExtractFeatures(_ context.Context, image []byte) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(image) == 0 {
		return nil, nil
	}
	return s.results[image[0]], nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestBuildProfileAveragesSuccessfulExtractions(t *testing.T) {
	extractor := &stubExtractor{results: map[byte][][]float64{
		'a': {{1, 2}},
		'b': {{3, 4}},
		'c': {{5, 6}},
	}}
	engine := NewEngine(extractor, 0.5, testLogger())

	// Two of five images contain no detectable face.
	images := [][]byte{[]byte("a"), []byte("x"), []byte("b"), []byte("y"), []byte("c")}
	profile, err := engine.BuildProfile(context.Background(), images)
	require.NoError(t, err)
	require.Equal(t, []float64{3, 4}, profile)
}

func TestBuildProfileUsesFirstFaceWhenSeveral(t *testing.T) {
	extractor := &stubExtractor{results: map[byte][][]float64{
		'a': {{2, 2}, {9, 9}},
	}}
	engine := NewEngine(extractor, 0.5, testLogger())

	profile, err := engine.BuildProfile(context.Background(), [][]byte{[]byte("a")})
	require.NoError(t, err)
	require.Equal(t, []float64{2, 2}, profile)
}

func TestBuildProfileAllImagesUnusable(t *testing.T) {
	engine := NewEngine(&stubExtractor{err: errors.New("extraction failed")}, 0.5, testLogger())

	_, err := engine.BuildProfile(context.Background(), [][]byte{[]byte("a"), []byte("b")})
	require.ErrorIs(t, err, ErrNoFacesFound)
}

func TestIdentifyPicksNearestUnderTolerance(t *testing.T) {
	extractor := &stubExtractor{results: map[byte][][]float64{
		'p': {{0, 0}},
	}}
	engine := NewEngine(extractor, 0.5, testLogger())

	known := []Candidate{
		{StudentID: 1, Encoding: []float64{0.4, 0}},  // within tolerance
		{StudentID: 2, Encoding: []float64{0.1, 0}},  // nearest
		{StudentID: 3, Encoding: []float64{0.45, 0}}, // within tolerance
	}

	match, err := engine.Identify(context.Background(), []byte("p"), known)
	require.NoError(t, err)
	require.Equal(t, uint(2), match.StudentID)
	require.InDelta(t, 0.1, match.Distance, 1e-9)
	require.InDelta(t, 0.9, match.Similarity, 1e-9)
}

func TestIdentifyNoMatch(t *testing.T) {
	extractor := &stubExtractor{results: map[byte][][]float64{
		'p': {{0, 0}},
	}}
	engine := NewEngine(extractor, 0.5, testLogger())

	known := []Candidate{{StudentID: 1, Encoding: []float64{3, 4}}}

	_, err := engine.Identify(context.Background(), []byte("p"), known)
	require.ErrorIs(t, err, ErrNoMatch)
}

func TestIdentifyNoProbeFace(t *testing.T) {
	engine := NewEngine(&stubExtractor{}, 0.5, testLogger())

	_, err := engine.Identify(context.Background(), []byte("z"), nil)
	require.ErrorIs(t, err, ErrNoFacesFound)
}

func TestIdentifySkipsMismatchedDimensions(t *testing.T) {
	extractor := &stubExtractor{results: map[byte][][]float64{
		'p': {{0, 0}},
	}}
	engine := NewEngine(extractor, 0.5, testLogger())

	known := []Candidate{
		{StudentID: 1, Encoding: []float64{0, 0, 0}},
		{StudentID: 2, Encoding: []float64{0.2, 0}},
	}

	match, err := engine.Identify(context.Background(), []byte("p"), known)
	require.NoError(t, err)
	require.Equal(t, uint(2), match.StudentID)
}
