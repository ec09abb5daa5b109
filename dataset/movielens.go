package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"recommender/models"
)

// LoadRatingsFile reads a MovieLens ratings CSV from disk.
func LoadRatingsFile(path string) ([]*models.Rating, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratings %s: %w", path, err)
	}
	defer f.Close()

	ratings, err := ReadRatings(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings %s: %w", path, err)
	}
	return ratings, nil
}

// ReadRatings parses userId,movieId,rating,timestamp records. Records with
// unparseable ids or ratings are dropped.
func ReadRatings(r io.Reader) ([]*models.Rating, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col, err := headerIndex(header, "userId", "movieId", "rating")
	if err != nil {
		return nil, err
	}
	tsIdx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "timestamp" {
			tsIdx = i
		}
	}

	var ratings []*models.Rating
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		userID, uerr := strconv.Atoi(strings.TrimSpace(record[col["userId"]]))
		movieID, merr := strconv.Atoi(strings.TrimSpace(record[col["movieId"]]))
		rating, rerr := strconv.ParseFloat(strings.TrimSpace(record[col["rating"]]), 64)
		if uerr != nil || merr != nil || rerr != nil {
			continue
		}

		var ts int64
		if tsIdx >= 0 {
			ts, _ = strconv.ParseInt(strings.TrimSpace(record[tsIdx]), 10, 64)
		}
		ratings = append(ratings, &models.Rating{
			UserID:    userID,
			MovieID:   movieID,
			Rating:    rating,
			Timestamp: ts,
		})
	}

	if len(ratings) == 0 {
		return nil, fmt.Errorf("ratings file contains no usable records")
	}
	return ratings, nil
}

// LoadMoviesFile reads a MovieLens movies CSV from disk.
func LoadMoviesFile(path string) (map[int]*models.Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open movies %s: %w", path, err)
	}
	defer f.Close()

	movies, err := ReadMovies(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read movies %s: %w", path, err)
	}
	return movies, nil
}

// ReadMovies parses movieId,title,genres records keyed by movie id.
func ReadMovies(r io.Reader) (map[int]*models.Movie, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col, err := headerIndex(header, "movieId", "title", "genres")
	if err != nil {
		return nil, err
	}

	movies := make(map[int]*models.Movie)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		movieID, err := strconv.Atoi(strings.TrimSpace(record[col["movieId"]]))
		if err != nil {
			continue
		}
		movies[movieID] = &models.Movie{
			MovieID: movieID,
			Title:   record[col["title"]],
			Genres:  strings.Split(record[col["genres"]], "|"),
		}
	}
	return movies, nil
}

func headerIndex(header []string, required ...string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return col, nil
}

// IndexMap assigns dense [0, n) indices to sparse ids in first-seen order.
// The mapping is a bijection over ids it has seen: Raw(Dense(id)) == id.
type IndexMap struct {
	toDense map[int]int
	toRaw   []int
}

// NewIndexMap creates an empty index map.
func NewIndexMap() *IndexMap {
	return &IndexMap{toDense: make(map[int]int)}
}

// Dense returns the dense index for id, assigning the next free index on
// first sight.
func (m *IndexMap) Dense(id int) int {
	if idx, ok := m.toDense[id]; ok {
		return idx
	}
	idx := len(m.toRaw)
	m.toDense[id] = idx
	m.toRaw = append(m.toRaw, id)
	return idx
}

// Lookup returns the dense index for id without assigning one.
func (m *IndexMap) Lookup(id int) (int, bool) {
	idx, ok := m.toDense[id]
	return idx, ok
}

// Raw returns the original id for a dense index.
func (m *IndexMap) Raw(idx int) int {
	return m.toRaw[idx]
}

// Len returns the number of ids mapped so far.
func (m *IndexMap) Len() int {
	return len(m.toRaw)
}

// Normalizer scales ratings into [0, 1] and back. A corpus with a single
// distinct rating value normalizes to 0 everywhere.
type Normalizer struct {
	Min, Max float64
}

// FitNormalizer computes the observed rating range.
func FitNormalizer(ratings []*models.Rating) Normalizer {
	n := Normalizer{Min: ratings[0].Rating, Max: ratings[0].Rating}
	for _, r := range ratings[1:] {
		if r.Rating < n.Min {
			n.Min = r.Rating
		}
		if r.Rating > n.Max {
			n.Max = r.Rating
		}
	}
	return n
}

// Normalize maps a rating into [0, 1].
func (n Normalizer) Normalize(rating float64) float64 {
	if n.Max == n.Min {
		return 0
	}
	return (rating - n.Min) / (n.Max - n.Min)
}

// Denormalize inverts Normalize for values in [0, 1].
func (n Normalizer) Denormalize(v float64) float64 {
	if n.Max == n.Min {
		return n.Min
	}
	return v*(n.Max-n.Min) + n.Min
}
