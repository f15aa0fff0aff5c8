// Package facematch builds biometric profiles from enrollment images and
// identifies students from a probe image. Feature extraction itself is an
// injected capability so the heavy numeric dependency stays outside the core.
package facematch

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"
)

// Recognition failures distinguished by callers.
var (
	// ErrNoFacesFound means not a single usable face vector could be
	// extracted from the supplied images.
	ErrNoFacesFound = errors.New("no faces found")
	// ErrNoMatch means a probe vector was extracted but no enrolled student
	// is within tolerance.
	ErrNoMatch = errors.New("no matching student")
)

// Extractor converts a raw image into zero or more face feature vectors.
// Implementations live in pkg/facerec (HTTP microservice) and in test stubs.
type Extractor interface {
	ExtractFeatures(ctx context.Context, image []byte) ([][]float64, error)
}

// Candidate is one enrolled student's stored feature vector.
type Candidate struct {
	StudentID uint
	Encoding  []float64
}

// Match is the outcome of a successful identification.
type Match struct {
	StudentID uint
	Distance  float64
	// Similarity is 1-distance clamped to [0,1], stored as the attendance
	// record's confidence score.
	Similarity float64
}

// Engine scans enrolled encodings for the nearest candidate under tolerance.
type Engine struct {
	extractor Extractor
	tolerance float64
	logger    zerolog.Logger
}

// NewEngine constructs an engine. Tolerance is the maximum Euclidean distance
// for a candidate to count as a match; 0.5 is the conventional value for
// normalized face embeddings.
func NewEngine(extractor Extractor, tolerance float64, logger zerolog.Logger) *Engine {
	if tolerance <= 0 {
		tolerance = 0.5
	}
	return &Engine{
		extractor: extractor,
		tolerance: tolerance,
		logger:    logger.With().Str("component", "facematch").Logger(),
	}
}

// BuildProfile extracts one vector per image and averages the successes.
// Images yielding no face are skipped; when the extractor reports several
// faces the first is used. Fails with ErrNoFacesFound only when every image
// was unusable.
func (e *Engine) BuildProfile(ctx context.Context, images [][]byte) ([]float64, error) {
	var (
		sum     []float64
		samples int
	)

	for _, image := range images {
		vectors, err := e.extractor.ExtractFeatures(ctx, image)
		if err != nil {
			e.logger.Debug().Err(err).Msg("enrollment image skipped")
			continue
		}
		if len(vectors) == 0 {
			continue
		}

		vector := vectors[0]
		if sum == nil {
			sum = make([]float64, len(vector))
		}
		if len(vector) != len(sum) {
			e.logger.Warn().Int("got", len(vector)).Int("want", len(sum)).Msg("dropping vector with mismatched dimension")
			continue
		}

		for i, v := range vector {
			sum[i] += v
		}
		samples++
	}

	if samples == 0 {
		return nil, ErrNoFacesFound
	}

	profile := make([]float64, len(sum))
	for i, v := range sum {
		profile[i] = v / float64(samples)
	}

	return profile, nil
}

// Identify extracts a probe vector and returns the nearest candidate whose
// distance is under tolerance. Nearest-match selection makes the result
// independent of enrollment order, at the cost of scanning every candidate.
func (e *Engine) Identify(ctx context.Context, probe []byte, known []Candidate) (Match, error) {
	vectors, err := e.extractor.ExtractFeatures(ctx, probe)
	if err != nil {
		return Match{}, ErrNoFacesFound
	}
	if len(vectors) == 0 {
		return Match{}, ErrNoFacesFound
	}

	probeVector := vectors[0]

	best := Match{Distance: math.Inf(1)}
	found := false
	for _, candidate := range known {
		if len(candidate.Encoding) != len(probeVector) {
			continue
		}

		distance := euclideanDistance(probeVector, candidate.Encoding)
		if distance <= e.tolerance && distance < best.Distance {
			best = Match{
				StudentID:  candidate.StudentID,
				Distance:   distance,
				Similarity: math.Max(0, 1-distance),
			}
			found = true
		}
	}

	if !found {
		return Match{}, ErrNoMatch
	}

	return best, nil
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
