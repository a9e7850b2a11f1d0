package models

// Place is a tourist point of interest as returned by the recommendation API.
type Place struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Price       float64  `json:"price"`
	ImageURL    string   `json:"image_url"`
	AvgRating   float64  `json:"avgRating"`
	UserRating  *float64 `json:"userRating,omitempty"`
}

// Rating is a single user's rating of a place.
type Rating struct {
	ID      int64 `json:"id"`
	Value   int   `json:"value"`
	UserID  int64 `json:"userId"`
	PlaceID int64 `json:"placeId"`
}

// RatingRequest is the body of a rating submission.
type RatingRequest struct {
	Value int `json:"value"`
}
