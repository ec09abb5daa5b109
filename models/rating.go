package models

// Rating is a single user-movie rating event.
type Rating struct {
	UserID    int
	MovieID   int
	Rating    float64
	Timestamp int64
}

// Movie describes a rateable movie.
type Movie struct {
	MovieID int
	Title   string
	Genres  []string
}
